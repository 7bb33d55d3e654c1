package sword

// EditableFields are the columns an administrator may set.
var EditableFields = []string{
	"School", "Smith", "Mei", "Type", "Nagasa", "Sori",
	"Moto", "Saki", "Nakago", "Ana", "Length", "Hori",
	"Authentication", "Province", "Period", "References",
	"Description", "Attachments", "Tags",
}

const Unset = "NA"

var defaults = map[string]string{
	"Smith": "Unknown",
	"Mei":   "Mumei",
	"Tags":  "",
}

// NewRecord builds a record from input: editable fields fall back to
// their defaults when blank, anything else in input is dropped, and
// media always starts empty. The index is assigned by the store.
func NewRecord(input map[string]string) Sword {
	rec := Sword{FieldMedia: Unset}
	for _, f := range EditableFields {
		v := input[f]
		if v == "" {
			v = fieldDefault(f)
		}
		rec[f] = v
	}
	return rec
}

// Changes returns the editable fields of input that differ from
// current. Non-editable keys are ignored.
func Changes(current Sword, input map[string]string) Sword {
	changes := Sword{}
	for _, f := range EditableFields {
		v, ok := input[f]
		if !ok {
			continue
		}
		if text(current, f) != v {
			changes[f] = v
		}
	}
	return changes
}

func fieldDefault(field string) string {
	if v, ok := defaults[field]; ok {
		return v
	}
	return Unset
}
