package models

// EquipmentRecord is the raw, arbitrary-shaped payload stored for one
// equipment. The core only interprets the "info", "data" and "alarm"
// members; everything else passes through untouched.
type EquipmentRecord = map[string]any

// Variable is one positional entry of an equipment "data" array:
// [type, name, value, unit, show, nominal]. Type is one of
// AI/AO/DI/DO/MI/MO. The sequence is order-significant for rendering and
// is replaced wholesale on every ingest, never patched element by element.
type Variable []any

func (v Variable) at(i int) any {
	if i < len(v) {
		return v[i]
	}
	return nil
}

// Type returns the point type (AI, AO, DI, DO, MI, MO).
func (v Variable) Type() string { s, _ := v.at(0).(string); return s }

// Name returns the variable name.
func (v Variable) Name() string { s, _ := v.at(1).(string); return s }

// Value returns the current value, untyped.
func (v Variable) Value() any { return v.at(2) }

// Unit returns the engineering unit.
func (v Variable) Unit() string { s, _ := v.at(3).(string); return s }

// Info returns the descriptive metadata object of a record, or nil.
func Info(rec EquipmentRecord) map[string]any {
	info, _ := rec["info"].(map[string]any)
	return info
}

// Variables returns the positional variable list of a record. Rows that
// are not arrays are skipped.
func Variables(rec EquipmentRecord) []Variable {
	raw, _ := rec["data"].([]any)
	if raw == nil {
		return nil
	}
	vars := make([]Variable, 0, len(raw))
	for _, row := range raw {
		if arr, ok := row.([]any); ok {
			vars = append(vars, Variable(arr))
		}
	}
	return vars
}

// AlarmRows returns the reported alarm list of a record. The list may
// live at the record root (single-equipment payloads) or nested under
// info (bulk snapshots).
func AlarmRows(rec EquipmentRecord) []any {
	if rows, ok := rec["alarm"].([]any); ok {
		return rows
	}
	if info := Info(rec); info != nil {
		if rows, ok := info["alarm"].([]any); ok {
			return rows
		}
	}
	return nil
}

// HasAlarmList reports whether the record carries an alarm list at all,
// even an empty one. An absent list means the snapshot is silent about
// alarms and must not drive reconciliation.
func HasAlarmList(rec EquipmentRecord) bool {
	if _, ok := rec["alarm"].([]any); ok {
		return true
	}
	if info := Info(rec); info != nil {
		if _, ok := info["alarm"].([]any); ok {
			return true
		}
	}
	return false
}

// OrdPav returns the floor-order hint from a record's info, defaulting
// to 0. JSON numbers decode as float64; integers are also accepted for
// records built in code.
func OrdPav(rec EquipmentRecord) int {
	info := Info(rec)
	if info == nil {
		return 0
	}
	switch n := info["ordPav"].(type) {
	case float64:
		return int(n)
	case int:
		return n
	}
	return 0
}
