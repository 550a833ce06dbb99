package mqtt

import (
	"encoding/json"
	"fmt"
	"log"
	"regexp"
	"strings"
	"unicode"

	"github.com/pkg/errors"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/sicpd/sicpd-go/pkg/sicp"

	mqttclient "github.com/eclipse/paho.mqtt.golang"
)

var stripNonAlphanumeric = regexp.MustCompile("[^a-zA-Z0-9]+")

// asciiFold strips diacritics so accented display and input labels still
// yield stable discovery object ids.
var asciiFold = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

func slug(s string) string {
	if folded, _, err := transform.String(asciiFold, s); err == nil {
		s = folded
	}
	return strings.ToLower(strings.Trim(stripNonAlphanumeric.ReplaceAllString(s, "_"), "_"))
}

func (r *MqttRelay) addDevice(topic, addMsg, removeMsg string) {
	r.client.Publish(topic, 1, false, addMsg)
}

func (r *MqttRelay) removeDevice(topic, addMsg, removeMsg string) {
	token := r.client.Publish(topic, 1, false, removeMsg)
	token.Wait()
}

func (r *MqttRelay) hassStatusCallback(c mqttclient.Client, msg mqttclient.Message) {
	switch string(msg.Payload()) {
	case "online":
		log.Println("HA going online, sending mqtt discovery messages")
		r.HADiscoveryAdd()
	}
}

// SetupHADiscovery enables Home Assistant MQTT discovery under the given
// prefix and announces all configured displays.
func (r *MqttRelay) SetupHADiscovery(discoveryPrefix string, autoremove bool) error {
	r.haDiscoveryPrefix = &discoveryPrefix
	r.haDiscoveryAutoremove = autoremove

	return r.HADiscoveryAdd()
}

// HADiscoveryAdd sends discovery messages that add the displays to Home
// Assistant.
func (r *MqttRelay) HADiscoveryAdd() error {
	if r.haDiscoveryPrefix == nil {
		return nil
	}

	var displays int
	for _, device := range r.devices {
		if err := createDisplayDiscoveryMessages(*r.haDiscoveryPrefix, r.clientId, device, r.addDevice); err != nil {
			return err
		}
		displays++
	}

	log.Printf("Sent MQTT autodiscover add for %d displays", displays)

	return nil
}

// HADiscoveryRemove sends discovery messages that remove the displays from
// Home Assistant. This also wipes any alterations the user may have made
// in HA, so it is off by default.
func (r *MqttRelay) HADiscoveryRemove() error {
	if r.haDiscoveryPrefix == nil || !r.haDiscoveryAutoremove {
		return nil
	}

	var displays int
	for _, device := range r.devices {
		if err := createDisplayDiscoveryMessages(*r.haDiscoveryPrefix, r.clientId, device, r.removeDevice); err != nil {
			return err
		}
		displays++
	}

	log.Printf("Sent MQTT autodiscover remove for %d displays", displays)

	return nil
}

func createDisplayDiscoveryMessages(discoveryPrefix, clientId string, device *sicp.Device, fn func(topic, addMsg, removeMsg string)) error {
	name := device.Name()
	deviceID := fmt.Sprintf("sicp_%s", slug(name))

	deviceInfo := map[string]string{
		"identifiers":  deviceID,
		"name":         name,
		"manufacturer": "Philips",
		"model":        "SICP display",
	}

	config := map[string]interface{}{
		"name":          "Power",
		"unique_id":     fmt.Sprintf("%s_power", deviceID),
		"device":        deviceInfo,
		"command_topic": fmt.Sprintf("%s/%s/set/power", clientId, name),
		"state_topic":   fmt.Sprintf("%s/%s/get/power", clientId, name),
		"payload_on":    "true",
		"payload_off":   "false",
		"optimistic":    "false",
	}

	addMsg, err := json.Marshal(config)
	if err != nil {
		return errors.WithStack(err)
	}
	fn(fmt.Sprintf("%s/switch/%s_power/config", discoveryPrefix, deviceID), string(addMsg), "")

	if inputs := device.Inputs(); len(inputs) > 0 {
		options := make([]string, 0, len(inputs))
		for _, input := range inputs {
			options = append(options, input.Label)
		}

		config = map[string]interface{}{
			"name":          "Input",
			"unique_id":     fmt.Sprintf("%s_input", deviceID),
			"device":        deviceInfo,
			"command_topic": fmt.Sprintf("%s/%s/set/input", clientId, name),
			"state_topic":   fmt.Sprintf("%s/%s/get/input", clientId, name),
			"options":       options,
		}

		if addMsg, err = json.Marshal(config); err != nil {
			return errors.WithStack(err)
		}
		fn(fmt.Sprintf("%s/select/%s_input/config", discoveryPrefix, deviceID), string(addMsg), "")
	}

	if device.VolumeConfigured() {
		min, max := device.VolumeRange()
		config = map[string]interface{}{
			"name":          "Volume",
			"unique_id":     fmt.Sprintf("%s_volume", deviceID),
			"device":        deviceInfo,
			"command_topic": fmt.Sprintf("%s/%s/set/volume", clientId, name),
			"state_topic":   fmt.Sprintf("%s/%s/get/volume", clientId, name),
			"min":           min,
			"max":           max,
		}

		if addMsg, err = json.Marshal(config); err != nil {
			return errors.WithStack(err)
		}
		fn(fmt.Sprintf("%s/number/%s_volume/config", discoveryPrefix, deviceID), string(addMsg), "")
	}

	if device.MuteConfigured() {
		config = map[string]interface{}{
			"name":          "Mute",
			"unique_id":     fmt.Sprintf("%s_mute", deviceID),
			"device":        deviceInfo,
			"command_topic": fmt.Sprintf("%s/%s/set/mute", clientId, name),
			"state_topic":   fmt.Sprintf("%s/%s/get/mute", clientId, name),
			"payload_on":    "true",
			"payload_off":   "false",
		}

		if addMsg, err = json.Marshal(config); err != nil {
			return errors.WithStack(err)
		}
		fn(fmt.Sprintf("%s/switch/%s_mute/config", discoveryPrefix, deviceID), string(addMsg), "")
	}

	// Brightness always has a control path; unconfigured axes fall back
	// to the video parameters command.
	min, max := device.BrightnessRange()
	config = map[string]interface{}{
		"name":          "Brightness",
		"unique_id":     fmt.Sprintf("%s_brightness", deviceID),
		"device":        deviceInfo,
		"command_topic": fmt.Sprintf("%s/%s/set/brightness", clientId, name),
		"state_topic":   fmt.Sprintf("%s/%s/get/brightness", clientId, name),
		"min":           min,
		"max":           max,
	}

	if addMsg, err = json.Marshal(config); err != nil {
		return errors.WithStack(err)
	}
	fn(fmt.Sprintf("%s/number/%s_brightness/config", discoveryPrefix, deviceID), string(addMsg), "")

	return nil
}
