package exitcode

import (
	"errors"
	"testing"

	"taskflow/internal/service"
)

func TestFromError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, Success},
		{"validation", service.Validationf("title required"), UserError},
		{"not found", &service.Error{Kind: service.KindNotFound}, UserError},
		{"auth", &service.Error{Kind: service.KindAuth, Status: 401}, AuthError},
		{"transport", &service.Error{Kind: service.KindTransport, Status: 502}, BackendError},
		{"foreign", errors.New("disk full"), BackendError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FromError(tt.err); got != tt.want {
				t.Errorf("FromError(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}
