package mqtt

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/sicpd/sicpd-go/pkg/bus"
	"github.com/sicpd/sicpd-go/pkg/sicp"

	evbus "github.com/asaskevich/EventBus"
	mqttclient "github.com/eclipse/paho.mqtt.golang"
)

// MqttRelay bridges the message bus to an MQTT broker. Set requests arrive
// on "<clientId>/<display>/set/<kind>" and state changes go out retained on
// "<clientId>/<display>/get/<kind>".
type MqttRelay struct {
	ctx    context.Context
	client mqttclient.Client

	clientId string
	devices  map[string]*sicp.Device
	bus      evbus.Bus

	haDiscoveryPrefix     *string
	haDiscoveryAutoremove bool
}

func CreateMqttRelay(ctx context.Context, clientId string, uri *url.URL, b evbus.Bus, devices map[string]*sicp.Device) (*MqttRelay, error) {
	if uri.Host == "" {
		return nil, errors.Errorf("invalid MQTT server url '%s'", uri)
	}
	if clientId == "" {
		clientId = fmt.Sprintf("sicpd-%.8s", uuid.NewString())
	}

	r := &MqttRelay{
		ctx:      ctx,
		clientId: clientId,
		devices:  devices,
		bus:      b,
	}

	opts := mqttclient.NewClientOptions()
	broker := fmt.Sprintf("tcp://%s", uri.Host)

	log.Printf("Connecting to MQTT broker '%s' with id '%s'", broker, clientId)

	opts.AddBroker(broker).
		SetClientID(clientId).
		SetConnectRetry(true).
		SetOnConnectHandler(r.connected).
		SetConnectionLostHandler(r.connectionLost).
		SetKeepAlive(30 * time.Second).
		SetUsername(uri.User.Username())
	if password, set := uri.User.Password(); set {
		opts.SetPassword(password)
	}

	r.client = mqttclient.NewClient(opts)
	t := r.client.Connect()
	go func() {
		<-t.Done()
		if t.Error() != nil {
			log.Println(t.Error())
		}
	}()

	b.Subscribe(bus.TOPIC_EVENT_POWER, func(name string, on bool) {
		r.publish(fmt.Sprintf("%s/%s/get/power", r.clientId, name), fmt.Sprint(on))
	})
	b.Subscribe(bus.TOPIC_EVENT_INPUT, func(name string, input int) {
		r.publish(fmt.Sprintf("%s/%s/get/input", r.clientId, name), fmt.Sprint(input))
	})
	b.Subscribe(bus.TOPIC_EVENT_VOLUME, func(name string, volume int) {
		r.publish(fmt.Sprintf("%s/%s/get/volume", r.clientId, name), fmt.Sprint(volume))
	})
	b.Subscribe(bus.TOPIC_EVENT_MUTE, func(name string, muted bool) {
		r.publish(fmt.Sprintf("%s/%s/get/mute", r.clientId, name), fmt.Sprint(muted))
	})
	b.Subscribe(bus.TOPIC_EVENT_BRIGHTNESS, func(name string, brightness int) {
		r.publish(fmt.Sprintf("%s/%s/get/brightness", r.clientId, name), fmt.Sprint(brightness))
	})

	return r, nil
}

func (r *MqttRelay) Close() {
	r.client.Disconnect(1000)
}

func (r *MqttRelay) connected(c mqttclient.Client) {
	subscriptions := map[string]func(name, payload string) error{
		"power": func(name, payload string) error {
			r.bus.Publish(bus.TOPIC_COMMAND_POWER, name, payload == "true")
			return nil
		},
		"input": func(name, payload string) error {
			input, err := r.resolveInput(name, payload)
			if err != nil {
				return err
			}
			r.bus.Publish(bus.TOPIC_COMMAND_INPUT, name, input)
			return nil
		},
		"volume": func(name, payload string) error {
			volume, err := strconv.Atoi(payload)
			if err != nil {
				return err
			}
			r.bus.Publish(bus.TOPIC_COMMAND_VOLUME, name, volume)
			return nil
		},
		"mute": func(name, payload string) error {
			r.bus.Publish(bus.TOPIC_COMMAND_MUTE, name, payload == "true")
			return nil
		},
		"brightness": func(name, payload string) error {
			brightness, err := strconv.Atoi(payload)
			if err != nil {
				return err
			}
			r.bus.Publish(bus.TOPIC_COMMAND_BRIGHTNESS, name, brightness)
			return nil
		},
	}

	for k, c := range subscriptions {
		cb := c
		r.subscribe(fmt.Sprintf("%s/+/set/%s", r.clientId, k),
			func(_ mqttclient.Client, msg mqttclient.Message) { go r.handleCommand(msg, cb) })
	}

	if r.haDiscoveryPrefix != nil {
		r.client.Subscribe(*r.haDiscoveryPrefix+"/status", 0,
			func(c mqttclient.Client, m mqttclient.Message) { go r.hassStatusCallback(c, m) })
	}

	log.Println("Connected to broker")
}

func (r *MqttRelay) connectionLost(c mqttclient.Client, err error) {
	log.Printf("Lost connection with broker: %s", err)
}

func (r *MqttRelay) handleCommand(msg mqttclient.Message, cb func(name, payload string) error) {
	name, ok := displayFromTopic(msg.Topic())
	if !ok {
		log.Printf("unexpected topic '%s'\n", msg.Topic())
		return
	}

	log.Printf("MQTT message; topic: '%s', message: '%s'\n", msg.Topic(), string(msg.Payload()))

	if err := cb(name, string(msg.Payload())); err != nil {
		log.Printf("WARNING: bad payload for display %s: %v", name, err)
	}
}

// displayFromTopic extracts the display name from a
// "<clientId>/<display>/set/<kind>" topic.
func displayFromTopic(topic string) (string, bool) {
	parts := strings.Split(topic, "/")
	if len(parts) != 4 {
		return "", false
	}
	return parts[1], true
}

// resolveInput accepts either an input identifier or an input label, so
// select-style frontends can publish the label directly.
func (r *MqttRelay) resolveInput(name, payload string) (int, error) {
	if input, err := strconv.Atoi(payload); err == nil {
		return input, nil
	}

	if device := r.devices[name]; device != nil {
		for _, input := range device.Inputs() {
			if input.Label == payload {
				return input.Id, nil
			}
		}
	}

	return 0, errors.Errorf("unknown input '%s'", payload)
}

func (r *MqttRelay) publish(topic string, msg string) {
	t := r.client.Publish(topic, 1, true, msg)
	go func() {
		<-t.Done()
		if t.Error() != nil {
			log.Println(t.Error())
		}
	}()
}

func (r *MqttRelay) subscribe(topic string, callback mqttclient.MessageHandler) {
	t := r.client.Subscribe(topic, 1, callback)
	go func() {
		<-t.Done()
		if t.Error() != nil {
			log.Println(t.Error())
		}
	}()
}
