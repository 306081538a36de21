// Command simulator publishes randomized vehicle telemetry to the feed
// topic so the station can be exercised without real hardware.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
)

type reading struct {
	Lat          float64 `json:"lat"`
	Lng          float64 `json:"lng"`
	Altitude     float64 `json:"altitude"`
	Temperature  float64 `json:"temperature"`
	Pressure     float64 `json:"pressure"`
	Direction    string  `json:"direction"`
	LineTracking bool    `json:"lineTracking"`
	Timestamp    string  `json:"timestamp"`
}

var directions = []string{"N", "NE", "E", "SE", "S", "SW", "W", "NW"}

func main() {
	broker := flag.String("broker", "tcp://test.mosquitto.org:1883", "MQTT broker URL")
	topic := flag.String("topic", "telemetry/data", "Topic to publish readings on")
	interval := flag.Duration("interval", time.Second, "Delay between readings")
	flag.Parse()

	opts := paho.NewClientOptions().
		AddBroker(*broker).
		SetClientID("simulator-" + uuid.NewString()[:8])
	client := paho.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		log.Fatalf("connect %s: %v", *broker, token.Error())
	}
	defer client.Disconnect(250)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	// Random walk around a fixed starting point.
	lat, lng := 51.4556, 7.0116
	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	fmt.Printf("publishing to %s on %s every %s\n", *topic, *broker, *interval)
	for {
		select {
		case <-sig:
			return
		case <-ticker.C:
			lat += (rand.Float64() - 0.5) * 0.0005
			lng += (rand.Float64() - 0.5) * 0.0005
			r := reading{
				Lat:          lat,
				Lng:          lng,
				Altitude:     100 + rand.Float64()*10,
				Temperature:  20 + rand.Float64()*8,
				Pressure:     1000 + rand.Float64()*30,
				Direction:    directions[rand.Intn(len(directions))],
				LineTracking: rand.Intn(4) == 0,
				Timestamp:    time.Now().UTC().Format(time.RFC3339),
			}
			payload, err := json.Marshal(r)
			if err != nil {
				log.Printf("marshal: %v", err)
				continue
			}
			if token := client.Publish(*topic, 0, false, payload); token.Wait() && token.Error() != nil {
				log.Printf("publish: %v", token.Error())
			}
		}
	}
}
