package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/sensordeck/sensordeck/internal/airquality"
	"github.com/sensordeck/sensordeck/internal/magnet"
	"github.com/sensordeck/sensordeck/internal/plugin"
	"github.com/sensordeck/sensordeck/internal/reading"
	"github.com/sensordeck/sensordeck/internal/sensors"
)

type stubDriver struct {
	name   string
	fields reading.Fields
}

func (d *stubDriver) Name() string { return d.name }
func (d *stubDriver) Init() error { return nil }
func (d *stubDriver) Fields() []string { return []string{"value"} }
func (d *stubDriver) ContinuousSampling() bool { return false }
func (d *stubDriver) Close() error { return nil }
func (d *stubDriver) Read() (reading.Fields, error) {
	return d.fields.Clone(), nil
}

func newTestServer(t *testing.T, withVirtual bool) (*Server, *gin.Engine) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	drv := &stubDriver{name: "TMP117", fields: reading.Fields{"value": 21.5}}
	p := plugin.New(drv, plugin.Options{})
	p.Sample()
	rt := plugin.NewRuntime(p)

	var v *sensors.Virtual
	if withVirtual {
		var err error
		v, err = sensors.NewVirtual(nil, airquality.Config{}, nil, magnet.Config{})
		if err != nil {
			t.Fatalf("NewVirtual: %v", err)
		}
		if err := v.Init(); err != nil {
			t.Fatalf("Init: %v", err)
		}
	}
	s := New(rt, v)
	return s, s.Router()
}

func TestSensorsEndpoint(t *testing.T) {
	_, r := newTestServer(t, false)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/sensors", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var body map[string]struct {
		Fields map[string]any `json:"fields"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	snap, ok := body["TMP117"]
	if !ok {
		t.Fatalf("response missing TMP117: %s", w.Body.String())
	}
	if snap.Fields["value"] != 21.5 {
		t.Errorf("value = %v, want 21.5", snap.Fields["value"])
	}
}

func TestSensorByName(t *testing.T) {
	_, r := newTestServer(t, false)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/sensors/TMP117", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"state"`) {
		t.Errorf("response missing state: %s", w.Body.String())
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/sensors/nope", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d for unknown sensor, want 404", w.Code)
	}
}

func TestPayloadEndpoint(t *testing.T) {
	s, r := newTestServer(t, true)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/payload",
		strings.NewReader(`{"VEML7700": {"Lux": 88}}`))
	r.ServeHTTP(w, req)
	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", w.Code)
	}
	fields, err := s.virtual.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got, _ := fields.Float("veml7700_lux"); got != 88 {
		t.Errorf("veml7700_lux = %v, want 88", fields["veml7700_lux"])
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/payload", strings.NewReader("{bad")))
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d for malformed JSON, want 400", w.Code)
	}
}

func TestPayloadEndpointWithoutVirtualSensor(t *testing.T) {
	_, r := newTestServer(t, false)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/payload", strings.NewReader(`{}`)))
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404 when the virtual sensor is disabled", w.Code)
	}
}
