package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/roast_meter/internal/config"
)

// RunConsoleMQTT prints the meter's measurement and calibration topics
// until ctx is cancelled.
func RunConsoleMQTT(ctx context.Context, out io.Writer) error {
	cfg := config.Get()

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDConsole)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	log.Printf("console: connected to MQTT broker at %s", cfg.MQTTBroker)

	measureToken := client.Subscribe(cfg.TopicMeasurement, 0, func(_ mqtt.Client, msg mqtt.Message) {
		printMeasurement(out, msg.Payload())
	})
	measureToken.Wait()
	if measureToken.Error() != nil {
		return measureToken.Error()
	}
	log.Printf("console: subscribed to %s", cfg.TopicMeasurement)

	calToken := client.Subscribe(cfg.TopicCalibration, 0, func(_ mqtt.Client, msg mqtt.Message) {
		printCalibration(out, msg.Payload())
	})
	calToken.Wait()
	if calToken.Error() != nil {
		return calToken.Error()
	}
	log.Printf("console: subscribed to %s", cfg.TopicCalibration)

	<-ctx.Done()

	log.Println("console: shutting down")
	client.Disconnect(250)
	return nil
}

func printMeasurement(out io.Writer, payload []byte) {
	var m MeasurementMessage
	if err := json.Unmarshal(payload, &m); err != nil {
		log.Printf("console: measurement unmarshal error: %v", err)
		return
	}
	if !m.Present {
		fmt.Fprintf(out, "[ROAST] %s  no sample\n", m.Time.Format("15:04:05.000"))
		return
	}
	fmt.Fprintf(out,
		"[ROAST] %s  mode=%-5s red=%6d ir=%6d ratio=%.4f roast=%3d\n",
		m.Time.Format("15:04:05.000"), m.Mode, m.Red, m.IR, m.Ratio, m.RoastIndex,
	)
}

func printCalibration(out io.Writer, payload []byte) {
	var c CalibrationMessage
	if err := json.Unmarshal(payload, &c); err != nil {
		log.Printf("console: calibration unmarshal error: %v", err)
		return
	}
	source := "default"
	if c.Calibrated {
		source = "custom"
	}
	fmt.Fprintf(out, "[CAL  ] %s  %s curve\n", c.Time.Format("2006-01-02 15:04:05"), source)
	for i, p := range c.Points {
		fmt.Fprintf(out, "[CAL  ]   %d  ratio=%.4f roast=%d\n", i+1, p.Ratio, p.RoastIndex)
	}
}
