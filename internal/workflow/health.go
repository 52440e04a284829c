package workflow

// ComponentHealth summarizes the readiness of one daemon dependency.
type ComponentHealth struct {
	Name   string `json:"name"`
	Ready  bool   `json:"ready"`
	Detail string `json:"detail,omitempty"`
}

// Healthy constructs a ready ComponentHealth record.
func Healthy(name string) ComponentHealth {
	return ComponentHealth{Name: name, Ready: true}
}

// Unhealthy constructs an unhealthy ComponentHealth record with context detail.
func Unhealthy(name, detail string) ComponentHealth {
	return ComponentHealth{Name: name, Ready: false, Detail: detail}
}
