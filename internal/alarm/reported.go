package alarm

import "time"

// ReportedAlarm is one entry of the alarm list embedded in telemetry,
// decoded from its positional form [name, active, severity, timestamp,
// message].
type ReportedAlarm struct {
	Name      string
	Active    bool
	Severity  int
	Timestamp time.Time
	Message   string
}

// ParseReported decodes one positional alarm row. Rows without a name
// are rejected; the remaining positions are optional and default to
// zero values.
func ParseReported(row []any) (ReportedAlarm, bool) {
	if len(row) == 0 {
		return ReportedAlarm{}, false
	}
	name, ok := row[0].(string)
	if !ok || name == "" {
		return ReportedAlarm{}, false
	}

	rep := ReportedAlarm{Name: name}
	if len(row) > 1 {
		rep.Active, _ = row[1].(bool)
	}
	if len(row) > 2 {
		switch n := row[2].(type) {
		case float64:
			rep.Severity = int(n)
		case int:
			rep.Severity = n
		}
	}
	if len(row) > 3 {
		if raw, ok := row[3].(string); ok {
			if ts, err := time.Parse(time.RFC3339, raw); err == nil {
				rep.Timestamp = ts
			}
		}
	}
	if len(row) > 4 {
		rep.Message, _ = row[4].(string)
	}
	return rep, true
}

// ParseReportedList decodes an embedded alarm list, skipping rows that
// are not arrays or carry no name.
func ParseReportedList(rows []any) []ReportedAlarm {
	reported := make([]ReportedAlarm, 0, len(rows))
	for _, raw := range rows {
		row, ok := raw.([]any)
		if !ok {
			continue
		}
		if rep, ok := ParseReported(row); ok {
			reported = append(reported, rep)
		}
	}
	return reported
}
