package models

type EffectiveSource string

const (
	EffectiveSourceOverride  EffectiveSource = "override"
	EffectiveSourceInherited EffectiveSource = "inherited"
	EffectiveSourceNone      EffectiveSource = "none"
)

// EffectiveIntegration is the resolver's answer for one (form, type) pair:
// an explicit form-level override, an inherited organization default, or
// nothing. Integration is nil iff Source is EffectiveSourceNone. Modelled as
// a tagged variant so impossible combinations cannot be represented.
type EffectiveIntegration struct {
	Source      EffectiveSource `json:"source"`
	Integration *Integration    `json:"integration,omitempty"`
}

func EffectiveOverride(integration *Integration) EffectiveIntegration {
	return EffectiveIntegration{Source: EffectiveSourceOverride, Integration: integration}
}

func EffectiveInherited(integration *Integration) EffectiveIntegration {
	return EffectiveIntegration{Source: EffectiveSourceInherited, Integration: integration}
}

func EffectiveNone() EffectiveIntegration {
	return EffectiveIntegration{Source: EffectiveSourceNone}
}

// IsDeliverable reports whether this result should produce a delivery job.
func (e EffectiveIntegration) IsDeliverable() bool {
	return e.Source != EffectiveSourceNone && e.Integration != nil && e.Integration.Active
}
