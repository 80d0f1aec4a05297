package domain

import "fmt"

// ValidationLimits carries the registry's structural cardinality policy,
// loaded from configuration.
type ValidationLimits struct {
	MinNameservers   int
	MaxNameservers   int
	MinAdminContacts int
	MaxAdminContacts int
	MinTechContacts  int
	MaxTechContacts  int
	MaxDNSKeys       int
}

// ValidateStructure checks the domain's cardinality invariants against the
// configured limits. The result feeds the automatic ok status derivation
// and is reported to callers on create and update.
func ValidateStructure(d *Domain, limits ValidationLimits) error {
	if n := len(d.Nameservers); n < limits.MinNameservers || n > limits.MaxNameservers {
		return fmt.Errorf("nameserver count %d outside [%d, %d]", n, limits.MinNameservers, limits.MaxNameservers)
	}
	if n := len(d.AdminContactIDs); n < limits.MinAdminContacts || n > limits.MaxAdminContacts {
		return fmt.Errorf("admin contact count %d outside [%d, %d]", n, limits.MinAdminContacts, limits.MaxAdminContacts)
	}
	if n := len(d.TechContactIDs); n < limits.MinTechContacts || n > limits.MaxTechContacts {
		return fmt.Errorf("tech contact count %d outside [%d, %d]", n, limits.MinTechContacts, limits.MaxTechContacts)
	}
	if n := len(d.DNSKeys); n > limits.MaxDNSKeys {
		return fmt.Errorf("dns key count %d exceeds %d", n, limits.MaxDNSKeys)
	}
	if d.RegistrantID == "" {
		return fmt.Errorf("registrant is required")
	}
	for _, ns := range d.Nameservers {
		if ns.Hostname == "" {
			return fmt.Errorf("nameserver hostname is blank")
		}
	}
	return nil
}

// StructurallyValid is the boolean form of ValidateStructure used by the
// automatic status derivation.
func StructurallyValid(d *Domain, limits ValidationLimits) bool {
	return ValidateStructure(d, limits) == nil
}
