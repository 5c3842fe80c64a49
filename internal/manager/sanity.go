package manager

import (
	"context"
	"time"
)

// SanityReport describes runtime checks for the external toolchain.
type SanityReport struct {
	Mode      string `json:"mode"`
	Toolchain string `json:"toolchain,omitempty"`
	Found     bool   `json:"found"`
	Error     string `json:"error,omitempty"`
}

// SanityCheck validates that the backend's toolchain is reachable.
// It does not mutate state and is safe to call at any time.
func (m *Manager) SanityCheck(ctx context.Context) SanityReport {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	r := SanityReport{Mode: string(m.backend.Mode())}
	desc, err := m.backend.Check(ctx)
	if err != nil {
		r.Error = err.Error()
		return r
	}
	r.Found = true
	r.Toolchain = desc
	return r
}
