//go:build integration

package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	coremetrics "github.com/kilianp07/resident-scheduler/core/metrics"
)

// TestMosquittoRoundTrip publishes a state event and a retained result to a
// real broker and reads them back.
func TestMosquittoRoundTrip(t *testing.T) {
	if os.Getenv("DOCKER_AVAILABLE") != "true" && os.Getenv("DOCKER_AVAILABLE") != "1" {
		t.Skip("docker not available")
	}
	ctx := context.Background()
	req := tc.ContainerRequest{
		Image:        "eclipse-mosquitto:1.6",
		ExposedPorts: []string{"1883/tcp"},
		WaitingFor:   wait.ForListeningPort("1883/tcp"),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("failed to start container: %v", err)
	}
	defer func() {
		if err := container.Terminate(ctx); err != nil {
			t.Fatalf("failed to terminate container: %v", err)
		}
	}()

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "1883")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	broker := fmt.Sprintf("tcp://%s:%s", host, port.Port())

	var cli *PahoClient
	for i := 0; i < 5; i++ {
		cli, err = NewPahoClient(Config{Broker: broker, ClientID: "publisher", QoS: map[string]byte{"state": 1, "result": 1}})
		if err == nil {
			break
		}
		time.Sleep(500 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer cli.Disconnect()

	sub := paho.NewClient(paho.NewClientOptions().AddBroker(broker).SetClientID("observer"))
	if token := sub.Connect(); token.Wait() && token.Error() != nil {
		t.Fatalf("observer connect: %v", token.Error())
	}
	defer sub.Disconnect(250)

	states := make(chan []byte, 1)
	if token := sub.Subscribe("scheduler/runs/+/state", 1, func(_ paho.Client, m paho.Message) { states <- m.Payload() }); token.Wait() && token.Error() != nil {
		t.Fatalf("subscribe: %v", token.Error())
	}
	if err := cli.PublishState(coremetrics.StateEvent{RunID: "r1", Block: 3, From: "solving", To: "optimal", Time: time.Now()}); err != nil {
		t.Fatalf("publish state: %v", err)
	}
	select {
	case raw := <-states:
		var msg stateMessage
		if err := json.Unmarshal(raw, &msg); err != nil || msg.To != "optimal" {
			t.Fatalf("unexpected state message %s (%v)", raw, err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for state")
	}

	if err := cli.PublishResult(3, map[string]string{"status": "optimal"}); err != nil {
		t.Fatalf("publish result: %v", err)
	}
	results := make(chan paho.Message, 1)
	if token := sub.Subscribe("scheduler/blocks/3/result", 1, func(_ paho.Client, m paho.Message) { results <- m }); token.Wait() && token.Error() != nil {
		t.Fatalf("subscribe: %v", token.Error())
	}
	select {
	case m := <-results:
		if !m.Retained() {
			t.Fatal("result should be retained")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for retained result")
	}
}
