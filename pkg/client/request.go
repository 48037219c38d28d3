package client

import (
	"encoding/json"
	"fmt"

	"github.com/trogdor/trogdor/pkg/trogerr"
)

// AddFaultParams is the CLI's parsed, not-yet-resolved representation of an
// `--add-fault` invocation: exactly one of StartTimeMs/StartTimeMsDelta and
// exactly one of EndTimeMs/DurationMs must be set (spec §6's XOR flag
// pairs). Its JSON tags are the wire field names a caller would see before
// delta resolution — this is the shape spec §8 scenario 5 exercises
// directly, independent of the HTTP round trip.
type AddFaultParams struct {
	Name             string          `json:"name"`
	FaultSpec        json.RawMessage `json:"fault_spec"`
	StartTimeMs      *int64          `json:"start_time_ms,omitempty"`
	StartTimeMsDelta *int64          `json:"start_time_ms_delta,omitempty"`
	EndTimeMs        *int64          `json:"end_time_ms,omitempty"`
	DurationMs       *int64          `json:"duration_ms,omitempty"`
}

// ParseAddFaultParams builds an AddFaultParams from the CLI's raw string
// flags, enforcing the two XOR pairs and parsing duration arguments with
// ParseDuration.
func ParseAddFaultParams(name, faultSpec, startMs, startDelta, endMs, duration string) (AddFaultParams, error) {
	var p AddFaultParams
	p.Name = name
	p.FaultSpec = json.RawMessage(faultSpec)

	if (startMs == "") == (startDelta == "") {
		return p, &trogerr.IngestError{Msg: "exactly one of --fault-start-time-ms or --fault-start-time-delta is required"}
	}
	if (endMs == "") == (duration == "") {
		return p, &trogerr.IngestError{Msg: "exactly one of --fault-end-time-ms or --fault-duration is required"}
	}

	if startMs != "" {
		v, err := parseInt64(startMs)
		if err != nil {
			return p, err
		}
		p.StartTimeMs = &v
	} else {
		d, err := ParseDuration(startDelta)
		if err != nil {
			return p, err
		}
		v := d.Milliseconds()
		p.StartTimeMsDelta = &v
	}

	if endMs != "" {
		v, err := parseInt64(endMs)
		if err != nil {
			return p, err
		}
		p.EndTimeMs = &v
	} else {
		d, err := ParseDuration(duration)
		if err != nil {
			return p, err
		}
		v := d.Milliseconds()
		p.DurationMs = &v
	}

	return p, nil
}

func parseInt64(s string) (int64, error) {
	var v int64
	_, err := fmt.Sscanf(s, "%d", &v)
	if err != nil {
		return 0, fmt.Errorf("invalid integer %q", s)
	}
	return v, nil
}

// Resolve turns the parsed params into an absolute start_ms/duration_ms
// pair, resolving any delta against nowMs — the client's wall clock at
// submission time (spec §4.9).
func (p AddFaultParams) Resolve(nowMs int64) (startMs, durationMs int64) {
	if p.StartTimeMs != nil {
		startMs = *p.StartTimeMs
	} else {
		startMs = nowMs + *p.StartTimeMsDelta
	}
	var endMs int64
	if p.EndTimeMs != nil {
		endMs = *p.EndTimeMs
		durationMs = endMs - startMs
	} else {
		durationMs = *p.DurationMs
	}
	return startMs, durationMs
}

// BuildFaultSpec merges the resolved start_ms/duration_ms into the user's
// --fault-spec JSON object, producing the final fault-spec wire value
// (spec §6) to submit on PUT /faults.
func (p AddFaultParams) BuildFaultSpec(nowMs int64) (json.RawMessage, error) {
	var fields map[string]any
	if err := json.Unmarshal(p.FaultSpec, &fields); err != nil {
		return nil, &trogerr.IngestError{Msg: "invalid --fault-spec JSON: " + err.Error()}
	}
	startMs, durationMs := p.Resolve(nowMs)
	fields["start_ms"] = startMs
	fields["duration_ms"] = durationMs
	return json.Marshal(fields)
}
