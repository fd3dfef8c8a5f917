// v2
// cmd/sensorsim/main.go
//
// Development stand-in for the field hardware: publishes synthetic soil
// moisture readings, reacts to pump commands, and can seed the planting
// configuration topics so the controller leaves ConfigPending without a
// dashboard.
package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

func main() {
	broker := flag.String("broker", "tcp://localhost:1883", "broker URL")
	soilTopic := flag.String("soil-topic", "esp32/soilMoisture", "soil reading topic")
	pumpTopic := flag.String("pump-topic", "esp32/pump/control", "pump command topic")
	configBase := flag.String("config-base", "User/Input/", "config topic prefix")
	interval := flag.Duration("interval", 10*time.Second, "publish interval")
	baseVWC := flag.Float64("vwc", 25.0, "baseline volumetric water content %")
	seedConfig := flag.Bool("seed-config", false, "publish a sample planting configuration at startup")
	flag.Parse()

	opts := mqtt.NewClientOptions().AddBroker(*broker).SetClientID("sensorsim")
	c := mqtt.NewClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		log.Fatalf("connect %s: %v", *broker, token.Error())
	}
	defer c.Disconnect(250)
	log.Printf("connected to %s", *broker)

	pumpOn := false
	if token := c.Subscribe(*pumpTopic, 0, func(_ mqtt.Client, m mqtt.Message) {
		cmd := string(m.Payload())
		pumpOn = cmd == "PUMP_ON"
		log.Printf("pump command: %s", cmd)
	}); token.Wait() && token.Error() != nil {
		log.Fatalf("subscribe %s: %v", *pumpTopic, token.Error())
	}

	if *seedConfig {
		seed := map[string]string{
			*configBase + "Crop":           "onion",
			*configBase + "Planting/Date":  time.Now().AddDate(0, 0, -106).Format("2006-01-02"),
			*configBase + "Plants/Number":  "100",
			*configBase + "Plants/Spacing": "10",
			*configBase + "Row/Spacing":    "20",
			*configBase + "Pump/Flowrate":  "9",
		}
		for topic, payload := range seed {
			if token := c.Publish(topic, 0, false, payload); token.Wait() && token.Error() != nil {
				log.Fatalf("seed %s: %v", topic, token.Error())
			}
			log.Printf("seeded %s = %s", topic, payload)
		}
	}

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)

	for {
		select {
		case <-sigs:
			log.Print("stopping")
			return
		case <-ticker.C:
			vwc := *baseVWC + rand.Float64()*4 - 2
			if pumpOn {
				// watered soil reads wetter
				vwc += 8
			}
			payload := strconv.FormatFloat(vwc, 'f', 1, 64)
			c.Publish(*soilTopic, 0, false, []byte(payload))
			fmt.Printf("soil %s%%\n", payload)
		}
	}
}
