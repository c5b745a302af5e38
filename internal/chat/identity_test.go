package chat

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClientIdentifier(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{name: "forwarded chain", headers: map[string]string{"X-Forwarded-For": " 203.0.113.9 , 10.0.0.1"}, want: "203.0.113.9"},
		{name: "forwarded wins over real ip", headers: map[string]string{"X-Forwarded-For": "203.0.113.9", "X-Real-IP": "198.51.100.1"}, want: "203.0.113.9"},
		{name: "real ip", headers: map[string]string{"X-Real-IP": " 198.51.100.1 "}, want: "198.51.100.1"},
		{name: "empty forwarded falls through", headers: map[string]string{"X-Forwarded-For": " , 10.0.0.1", "X-Real-IP": "198.51.100.1"}, want: "198.51.100.1"},
		{name: "none", headers: nil, want: UnknownClient},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := http.Header{}
			for k, v := range tt.headers {
				h.Set(k, v)
			}
			assert.Equal(t, tt.want, ClientIdentifier(h))
		})
	}
}
