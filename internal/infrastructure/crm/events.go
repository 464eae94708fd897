package crm

import "strings"

// eventAliases maps the camel-cased event names some CRM versions send
// to the canonical uppercase form
var eventAliases = map[string]string{
	"onCrmDealUpdate":    "ONCRMDEALUPDATE",
	"onCrmDealAdd":       "ONCRMDEALADD",
	"onCrmContactUpdate": "ONCRMCONTACTUPDATE",
	"onCrmContactAdd":    "ONCRMCONTACTADD",
	"onCrmLeadUpdate":    "ONCRMLEADUPDATE",
}

// NormalizeEvent converts any event spelling the remote sends into the
// canonical uppercase form
func NormalizeEvent(event string) string {
	event = strings.TrimSpace(event)
	if canonical, ok := eventAliases[event]; ok {
		return canonical
	}
	return strings.ToUpper(event)
}
