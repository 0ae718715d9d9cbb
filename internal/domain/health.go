package domain

import "time"

// CheckResult is the outcome of one predicate in one aggregator cycle.
type CheckResult struct {
	Name    string `json:"name" yaml:"name"`
	Healthy bool   `json:"healthy" yaml:"healthy"`
}

// HealthSnapshot is the aggregator state observed by displays.
// Fields are ordered to minimize memory padding.
type HealthSnapshot struct {
	LastPoll     time.Time     `json:"lastPoll" yaml:"last_poll"`
	FaultSince   time.Time     `json:"faultSince,omitempty" yaml:"fault_since,omitempty"`
	Results      []CheckResult `json:"results" yaml:"results"`
	FirstFailure string        `json:"firstFailure,omitempty" yaml:"first_failure,omitempty"`
	Cycles       uint64        `json:"cycles" yaml:"cycles"`
	Period       Ticks         `json:"period" yaml:"period"`
	Latched      bool          `json:"latched" yaml:"latched"`
	LEDOn        bool          `json:"ledOn" yaml:"led_on"`
}

// Failed returns the names of the checks that failed in the last cycle.
func (s HealthSnapshot) Failed() []string {
	var failed []string
	for _, r := range s.Results {
		if !r.Healthy {
			failed = append(failed, r.Name)
		}
	}
	return failed
}
