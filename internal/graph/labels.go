package graph

import "github.com/ppiankov/latool/internal/model"

var friendlyTypeNames = map[string]string{
	"HumanMadeObject":     "Physical Object",
	"DigitalObject":       "Digital Object",
	"Person":              "Person",
	"Group":               "Group/Organization",
	"Place":               "Place",
	"VisualItem":          "Visual Work",
	"LinguisticObject":    "Textual Work",
	"PropositionalObject": "Abstract Work",
	"Set":                 "Set/Collection",
	"Activity":            "Activity",
	"Event":               "Event",
	"Type":                "Concept/Type",
	"TimeSpan":            "Time Span",
	"Name":                "Name",
	"Identifier":          "Identifier",
	"Dimension":           "Dimension",
	"Material":            "Material",
	"Language":            "Language",
	"MeasurementUnit":     "Measurement Unit",
	"Currency":            "Currency",
	"Right":               "Right",
}

// FriendlyTypeName maps a Linked Art class to a display name; unknown classes pass through
func FriendlyTypeName(entityType string) string {
	if name, ok := friendlyTypeNames[entityType]; ok {
		return name
	}
	return entityType
}

// EntityTypeOf returns the entity class, or "Unknown"
func EntityTypeOf(obj *model.Object) string {
	if t := obj.Type(); t != "" {
		return t
	}
	return "Unknown"
}

// Label returns the first non-empty of _label, label and name
func Label(obj *model.Object) string {
	for _, key := range []string{"_label", "label", "name"} {
		if s := obj.String(key); s != "" {
			return s
		}
	}
	return ""
}

// ContentOrValue reads the text of a Name, Identifier or LinguisticObject.
// Older documents carry "value" instead of "content"; using it is logged.
func ContentOrValue(item *model.Object, field string, log model.LogSink) string {
	if item == nil {
		return ""
	}
	if v, _ := item.Get("content"); model.Truthy(v) {
		return model.FormatScalar(v)
	}
	if v, _ := item.Get("value"); model.Truthy(v) {
		model.Logf(log, "%s could not be retrieved using the \"content\" attribute. \"value\" attribute retrieved instead.", field)
		return model.FormatScalar(v)
	}
	return ""
}
