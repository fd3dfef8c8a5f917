package engine

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"irrinet/controller/internal/bus"
	"irrinet/controller/internal/config"
)

func fullConfigMessages() []bus.Message {
	return []bus.Message{
		{Kind: bus.KindConfigCrop, Text: "onion"},
		{Kind: bus.KindConfigDate, Text: "2026-04-15"},
		{Kind: bus.KindConfigPlantCount, Value: 120},
		{Kind: bus.KindConfigPlantSpacing, Value: 10},
		{Kind: bus.KindConfigRowSpacing, Value: 20},
		{Kind: bus.KindConfigFlowRate, Value: 9},
	}
}

func newBusSource() BusSource {
	return BusSource{
		Poll: time.Millisecond,
		Log:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func TestBusSourceCompletes(t *testing.T) {
	conn := &fakeConn{connected: true, inbox: fullConfigMessages()}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	pc, err := newBusSource().Await(ctx, conn)
	if err != nil {
		t.Fatal(err)
	}
	want := config.PlantingConfig{
		Crop:           "onion",
		PlantingDate:   "2026-04-15",
		PlantCount:     120,
		PlantSpacingCM: 10,
		RowSpacingCM:   20,
		PumpFlowLPH:    9,
	}
	if pc != want {
		t.Fatalf("config = %+v, want %+v", pc, want)
	}
}

func TestBusSourceTimesOutWhenIncomplete(t *testing.T) {
	msgs := fullConfigMessages()[:5] // flow rate never arrives
	conn := &fakeConn{connected: true, inbox: msgs}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	if _, err := newBusSource().Await(ctx, conn); err == nil {
		t.Fatal("Await returned without the full configuration")
	}
}

func TestBusSourceRejectsInvalidFieldValues(t *testing.T) {
	msgs := []bus.Message{
		{Kind: bus.KindConfigCrop, Text: "kudzu"},
		{Kind: bus.KindConfigDate, Text: "2026-02-30"},
		{Kind: bus.KindConfigPlantCount, Value: -3},
		{Kind: bus.KindConfigFlowRate, Value: 0},
		{Kind: bus.KindConfigPlantSpacing, Value: 10},
	}
	src := newBusSource()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	var p pendingConfig
	for _, m := range msgs {
		src.apply(&p, m, log)
	}
	if p.crop != nil || p.plantingDate != nil || p.plantCount != nil || p.flowRate != nil {
		t.Fatalf("invalid values populated fields: %+v", p)
	}
	if p.plantSpacing == nil || *p.plantSpacing != 10 {
		t.Fatal("valid field not populated")
	}
}

func TestBusSourceFieldsResendable(t *testing.T) {
	src := newBusSource()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	var p pendingConfig

	src.apply(&p, bus.Message{Kind: bus.KindConfigPlantCount, Value: 120}, log)
	src.apply(&p, bus.Message{Kind: bus.KindConfigPlantCount, Value: 150}, log)
	if p.plantCount == nil || *p.plantCount != 150 {
		t.Fatalf("resend not honored: %+v", p.plantCount)
	}
}
