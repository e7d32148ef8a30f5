package shipping

import "strings"

// pickupMode describes how a carrier's delivery mode is determined.
type pickupMode int

const (
	// pickupByTerm: pickup only when the id/title mentions a parcel locker.
	pickupByTerm pickupMode = iota
	// pickupAlways: the carrier only operates pickup lockers.
	pickupAlways
)

// classifierRule matches a carrier by substring against the method id or
// title. Rules are evaluated in order and the first match wins, so a title
// mentioning both "omniva" and "dpd" classifies as omniva.
type classifierRule struct {
	carrier Carrier
	terms   []string
	mode    pickupMode
}

var classifierRules = []classifierRule{
	{CarrierOmniva, []string{"montonio_omniva", "omniva"}, pickupByTerm},
	{CarrierUnisend, []string{"montonio_unisend", "unisend"}, pickupAlways},
	{CarrierDPD, []string{"montonio_dpd", "dpd"}, pickupByTerm},
	{CarrierVenipak, []string{"montonio_venipak", "venipak"}, pickupByTerm},
	{CarrierSmartpost, []string{"smartpost"}, pickupAlways},
	{CarrierInpost, []string{"inpost"}, pickupAlways},
}

// pickupTerms mark a method as parcel-locker delivery. "Paštomatas" is the
// Lithuanian word for a parcel locker; titles use inflected forms.
var pickupTerms = []string{"parcel", "paštomatu", "paštomat"}

// Classify derives the carrier and delivery mode from a shipping method's
// technical id and display title, case-insensitively. Methods matching no
// rule return (CarrierNone, false) and are treated as plain courier delivery.
func Classify(methodID, title string) (Carrier, bool) {
	id := strings.ToLower(methodID)
	name := strings.ToLower(title)

	for _, rule := range classifierRules {
		if !matchesAny(id, name, rule.terms) {
			continue
		}
		switch rule.mode {
		case pickupAlways:
			return rule.carrier, true
		default:
			return rule.carrier, matchesAny(id, name, pickupTerms)
		}
	}
	return CarrierNone, false
}

func matchesAny(id, title string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(id, t) || strings.Contains(title, t) {
			return true
		}
	}
	return false
}
