package domain

import "time"

// Sample is one persisted telemetry reading from the vehicle.
type Sample struct {
	ID           string    `json:"id"`
	Timestamp    time.Time `json:"timestamp"`
	Lat          float64   `json:"lat"`
	Lng          float64   `json:"lng"`
	Altitude     *float64  `json:"altitude,omitempty"`
	Temperature  float64   `json:"temperature"`
	Pressure     float64   `json:"pressure"`
	Direction    string    `json:"direction,omitempty"`
	LineTracking *bool     `json:"lineTracking,omitempty"`
}

// Candidate is a decoded feed payload that has not been validated or
// persisted yet. Required fields are pointers so a missing field is
// distinguishable from a zero value.
type Candidate struct {
	Timestamp    *time.Time `json:"timestamp,omitempty"`
	Lat          *float64   `json:"lat"`
	Lng          *float64   `json:"lng"`
	Altitude     *float64   `json:"altitude,omitempty"`
	Temperature  *float64   `json:"temperature"`
	Pressure     *float64   `json:"pressure"`
	Direction    string     `json:"direction,omitempty"`
	LineTracking *bool      `json:"lineTracking,omitempty"`
}

// Validate reports the first missing required field, if any.
func (c *Candidate) Validate() error {
	switch {
	case c == nil:
		return &ValidationError{Field: "payload", Reason: "empty"}
	case c.Lat == nil:
		return &ValidationError{Field: "lat", Reason: "required"}
	case c.Lng == nil:
		return &ValidationError{Field: "lng", Reason: "required"}
	case c.Temperature == nil:
		return &ValidationError{Field: "temperature", Reason: "required"}
	case c.Pressure == nil:
		return &ValidationError{Field: "pressure", Reason: "required"}
	}
	return nil
}

// Sample materializes the candidate. The id stays empty until the store
// assigns one; a missing timestamp defaults to now.
func (c *Candidate) Sample(now time.Time) *Sample {
	s := &Sample{
		Lat:          *c.Lat,
		Lng:          *c.Lng,
		Altitude:     c.Altitude,
		Temperature:  *c.Temperature,
		Pressure:     *c.Pressure,
		Direction:    c.Direction,
		LineTracking: c.LineTracking,
	}
	if c.Timestamp != nil && !c.Timestamp.IsZero() {
		s.Timestamp = *c.Timestamp
	} else {
		s.Timestamp = now
	}
	return s
}

// Update carries the mutable fields of an update-by-id. The id and
// creation timestamp are never touched.
type Update struct {
	Lat          float64  `json:"lat"`
	Lng          float64  `json:"lng"`
	Altitude     *float64 `json:"altitude,omitempty"`
	Temperature  float64  `json:"temperature"`
	Pressure     float64  `json:"pressure"`
	Direction    string   `json:"direction,omitempty"`
	LineTracking *bool    `json:"lineTracking,omitempty"`
}

// Apply copies the mutable fields onto an existing sample.
func (u Update) Apply(s *Sample) {
	s.Lat = u.Lat
	s.Lng = u.Lng
	s.Altitude = u.Altitude
	s.Temperature = u.Temperature
	s.Pressure = u.Pressure
	s.Direction = u.Direction
	s.LineTracking = u.LineTracking
}

// Command is a control message published back to the vehicle, mirroring
// what the dashboard sends: a direction label, a target position, or a
// line-tracking toggle.
type Command struct {
	Direction    string   `json:"direction,omitempty"`
	Lat          *float64 `json:"lat,omitempty"`
	Lng          *float64 `json:"lng,omitempty"`
	LineTracking *bool    `json:"lineTracking,omitempty"`
}
