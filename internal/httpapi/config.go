package httpapi

// maxBodyBytes bounds JSON and multipart request bodies.
var maxBodyBytes int64 = 8 << 20

// SetMaxBodyBytes configures the maximum request body size. Non-positive
// values restore the default of 8 MiB.
func SetMaxBodyBytes(n int64) {
	if n <= 0 {
		maxBodyBytes = 8 << 20
		return
	}
	maxBodyBytes = n
}

// serviceVersion is reported by GET /version.
var serviceVersion = "1.3.0"

// SetVersion overrides the version string reported by GET /version.
func SetVersion(v string) {
	if v != "" {
		serviceVersion = v
	}
}

// CORS is enabled for every origin unless configured otherwise.
var (
	corsEnabled        = true
	corsAllowedOrigins = []string{"*"}
	corsAllowedMethods = []string{"GET", "POST", "DELETE", "OPTIONS"}
	corsAllowedHeaders = []string{"*"}
)

// SetCORSOptions configures CORS behavior for the HTTP server. Empty slices
// keep the current values.
func SetCORSOptions(enabled bool, origins, methods, headers []string) {
	corsEnabled = enabled
	if len(origins) > 0 {
		corsAllowedOrigins = append([]string(nil), origins...)
	}
	if len(methods) > 0 {
		corsAllowedMethods = append([]string(nil), methods...)
	}
	if len(headers) > 0 {
		corsAllowedHeaders = append([]string(nil), headers...)
	}
}
