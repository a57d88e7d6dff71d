package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/muurk/watering/internal/protocol"
	"github.com/muurk/watering/internal/session"
)

const maxBodySize = 64 << 10

// numText is a numeric field sent as text ("0x1F", "31") or as a JSON number.
type numText string

func (n *numText) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*n = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*n = numText(s)
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(data, &num); err != nil {
		return fmt.Errorf("expected number or string, got %s", data)
	}
	*n = numText(num.String())
	return nil
}

// flag is a boolean sent as JSON bool, number or text (true/false, on/off, 1/0).
type flag bool

func (f *flag) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*f = flag(b)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		var num json.Number
		if err := json.Unmarshal(data, &num); err != nil {
			return fmt.Errorf("expected boolean, got %s", data)
		}
		s = num.String()
	}
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "on", "1", "yes":
		*f = true
	case "false", "off", "0", "no", "":
		*f = false
	default:
		return fmt.Errorf("expected boolean, got %q", s)
	}
	return nil
}

// decodeRequest reads a JSON or form encoded body into v. Form keys of the
// form name[i] or name[] become arrays; indices the form skips become null.
func decodeRequest(r *http.Request, v any) error {
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	r.Body = http.MaxBytesReader(nil, r.Body, maxBodySize)

	var data []byte
	switch ct {
	case "application/x-www-form-urlencoded", "multipart/form-data":
		if err := r.ParseMultipartForm(maxBodySize); err != nil && err != http.ErrNotMultipart {
			return fmt.Errorf("invalid form body: %w", err)
		}
		var err error
		if data, err = json.Marshal(formToMap(r.PostForm)); err != nil {
			return err
		}
	default:
		var buf bytes.Buffer
		if _, err := buf.ReadFrom(r.Body); err != nil {
			return fmt.Errorf("cannot read body: %w", err)
		}
		data = buf.Bytes()
		if len(bytes.TrimSpace(data)) == 0 {
			data = []byte("{}")
		}
	}

	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

var indexedKey = regexp.MustCompile(`^(.+)\[(\d*)\]$`)

func formToMap(form map[string][]string) map[string]any {
	out := make(map[string]any)
	indexed := make(map[string]map[int]string)

	for key, values := range form {
		if len(values) == 0 {
			continue
		}
		m := indexedKey.FindStringSubmatch(key)
		if m == nil {
			out[key] = values[0]
			continue
		}
		name := m[1]
		if indexed[name] == nil {
			indexed[name] = make(map[int]string)
		}
		if m[2] == "" {
			for i, v := range values {
				indexed[name][i] = v
			}
			continue
		}
		i, err := strconv.Atoi(m[2])
		if err != nil || i > 64 {
			continue
		}
		indexed[name][i] = values[0]
	}

	for name, items := range indexed {
		idx := make([]int, 0, len(items))
		for i := range items {
			idx = append(idx, i)
		}
		sort.Ints(idx)
		list := make([]any, idx[len(idx)-1]+1)
		for _, i := range idx {
			list[i] = items[i]
		}
		out[name] = list
	}
	return out
}

type connectRequest struct {
	Port          string  `json:"port"`
	Baud          numText `json:"baud"`
	AddressThis   numText `json:"addressThis"`
	AddressServer numText `json:"addressServer"` // older clients
	AddressClient numText `json:"addressClient"`
}

func (c connectRequest) params() (session.Params, error) {
	var p session.Params
	p.Port = strings.TrimSpace(c.Port)
	if p.Port == "" {
		return p, fmt.Errorf("port is required")
	}

	baud, err := protocol.ParseNumber(string(c.Baud), 32)
	if err != nil || baud == 0 {
		return p, fmt.Errorf("invalid baud rate %q", c.Baud)
	}
	p.Baud = int(baud)

	own := c.AddressThis
	if own == "" {
		own = c.AddressServer
	}
	if p.Own, err = protocol.ParseAddress(string(own)); err != nil {
		return p, fmt.Errorf("addressThis: %w", err)
	}
	if p.Peer, err = protocol.ParseAddress(string(c.AddressClient)); err != nil {
		return p, fmt.Errorf("addressClient: %w", err)
	}
	return p, nil
}

type onOffRequest struct {
	Channel numText `json:"channel"`
	On      flag    `json:"on"`
}

type tempSwitchRequest struct {
	On flag `json:"on"`
}

// settingsRequest carries the settings form. Every field is optional, array
// elements included; absent or null fields keep the base value in apply.
type settingsRequest struct {
	ChannelEnabled  []*flag    `json:"channelEnabled"`
	AdcTriggerValue []*numText `json:"adcTriggerValue"`
	WateringTime    []*numText `json:"wateringTime"`

	CheckInterval      *numText `json:"checkInterval"`
	TempSensorInterval *numText `json:"tempSensorInterval"`
	DhtInterval        *numText `json:"dhtInterval"`
	SendAdcValues      *flag    `json:"sendAdcValues"`
	SendAdcValuesRH    *flag    `json:"sendAdcValuesThroughRH"`

	PushDataEnabled *flag `json:"pushDataEnabled"`

	ServerAddress  *numText `json:"serverAddress"`
	NodeAddress    *numText `json:"nodeAddress"`
	DelayAfterSend *numText `json:"delayAfterSend"`

	TempSwitchTriggerValue *numText `json:"tempSwitchTriggerValue"`
	TempSwitchHysteresis   *numText `json:"tempSwitchHysteresis"` // degrees, one decimal
	TempSwitchInverted     *flag    `json:"tempSwitchInverted"`
}

func (req settingsRequest) apply(base protocol.Settings) (protocol.Settings, error) {
	// all blocks present; the encoder drops what the controller version lacks
	s := base.Normalize(protocol.Version220)

	if len(req.ChannelEnabled) > protocol.Channels || len(req.AdcTriggerValue) > protocol.Channels ||
		len(req.WateringTime) > protocol.Channels {
		return s, fmt.Errorf("at most %d channels", protocol.Channels)
	}
	for i, v := range req.ChannelEnabled {
		if v != nil {
			s.Channels[i].Enabled = bool(*v)
		}
	}
	for i, v := range req.AdcTriggerValue {
		if v == nil || *v == "" {
			continue
		}
		n, err := parseUint16(fmt.Sprintf("adcTriggerValue[%d]", i), *v)
		if err != nil {
			return s, err
		}
		s.Channels[i].AdcTriggerValue = n
	}
	for i, v := range req.WateringTime {
		if v == nil || *v == "" {
			continue
		}
		n, err := parseUint16(fmt.Sprintf("wateringTime[%d]", i), *v)
		if err != nil {
			return s, err
		}
		s.Channels[i].WateringTime = n
	}

	var err error
	if v := firstNum(req.CheckInterval); v != nil {
		if s.CheckInterval, err = parseUint16("checkInterval", *v); err != nil {
			return s, err
		}
	}
	if v := firstNum(req.TempSensorInterval, req.DhtInterval); v != nil {
		if s.TempSensorInterval, err = parseUint16("tempSensorInterval", *v); err != nil {
			return s, err
		}
	}
	if v := firstFlag(req.SendAdcValues, req.SendAdcValuesRH); v != nil {
		s.SendAdcValues = bool(*v)
	}
	if req.PushDataEnabled != nil {
		s.Push.Enabled = bool(*req.PushDataEnabled)
	}

	if req.ServerAddress != nil {
		if s.Link.ServerAddress, err = protocol.ParseAddress(string(*req.ServerAddress)); err != nil {
			return s, fmt.Errorf("serverAddress: %w", err)
		}
	}
	if req.NodeAddress != nil {
		if s.Link.NodeAddress, err = protocol.ParseAddress(string(*req.NodeAddress)); err != nil {
			return s, fmt.Errorf("nodeAddress: %w", err)
		}
	}
	if req.DelayAfterSend != nil {
		if s.Link.DelayAfterSend, err = parseUint16("delayAfterSend", *req.DelayAfterSend); err != nil {
			return s, err
		}
	}

	if req.TempSwitchTriggerValue != nil {
		n, err := protocol.ParseSignedNumber(string(*req.TempSwitchTriggerValue), 8)
		if err != nil {
			return s, fmt.Errorf("invalid tempSwitchTriggerValue %q", *req.TempSwitchTriggerValue)
		}
		s.TempSwitch.TriggerValue = int8(n)
	}
	if req.TempSwitchHysteresis != nil {
		deg, err := strconv.ParseFloat(strings.TrimSpace(string(*req.TempSwitchHysteresis)), 64)
		if err != nil {
			return s, fmt.Errorf("invalid tempSwitchHysteresis %q", *req.TempSwitchHysteresis)
		}
		if s.TempSwitch.HysteresisTenths, err = protocol.HysteresisTenths(deg); err != nil {
			return s, err
		}
	}
	if req.TempSwitchInverted != nil {
		s.TempSwitch.Inverted = bool(*req.TempSwitchInverted)
	}
	return s, nil
}

func parseUint16(field string, v numText) (uint16, error) {
	n, err := protocol.ParseNumber(string(v), 16)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", field, v)
	}
	return uint16(n), nil
}

func firstNum(vals ...*numText) *numText {
	for _, v := range vals {
		if v != nil && *v != "" {
			return v
		}
	}
	return nil
}

func firstFlag(vals ...*flag) *flag {
	for _, v := range vals {
		if v != nil {
			return v
		}
	}
	return nil
}
