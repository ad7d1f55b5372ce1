package pipeline

import "strings"

// ComponentTableHeader is the header row of the tool component table.
const ComponentTableHeader = "组件,Material,Treatment,Qty/Set,Unit Cost(RMB),Total Cost(RMB)"

const componentLabel = "组件"

var ComponentNames = []string{
	"Cavity", "Core", "Slider", "Lifter", "Insert", "Others",
	"Moldbase", "Std components", "Ejector components",
}

const (
	PropMaterial  = "Material"
	PropTreatment = "Treatment"
	PropQty       = "Qty/Set"
	PropUnitCost  = "Unit Cost(RMB)"
	PropTotalCost = "Total Cost(RMB)"
)

var ComponentProperties = []string{PropMaterial, PropTreatment, PropQty, PropUnitCost, PropTotalCost}

var summaryKeywords = []string{"total", "sum", "percentage"}

var numericKeywords = []string{
	"cost", "rate", "hrs", "hours", "qty", "quantity", "pitch", "size",
	"total", "sum", "percentage", "price", "amount", "value", "weight",
	"time", "days", "weeks", "months",
}

func IsSummaryField(name string) bool {
	return containsAny(strings.ToLower(name), summaryKeywords)
}

func IsNumericField(name string) bool {
	return containsAny(strings.ToLower(name), numericKeywords)
}

// IsComponentName matches the nine component names exactly, case included.
func IsComponentName(name string) bool {
	for _, c := range ComponentNames {
		if c == name {
			return true
		}
	}
	return false
}

func IsNumericProperty(property string) bool {
	return strings.Contains(property, "Cost") || strings.Contains(property, "Qty")
}

func isStrayHeader(line string) bool {
	norm := strings.ToLower(strings.TrimSpace(strings.ReplaceAll(line, `"`, "")))
	return strings.HasPrefix(norm, "material") ||
		strings.HasPrefix(norm, componentLabel) ||
		strings.Contains(norm, "material,treatment")
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
