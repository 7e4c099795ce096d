package naming

import "fmt"

// Policy determines how a file name is derived from an item and its position.
type Policy struct {
	// Template is the configured default template.
	Template string

	// SequenceTemplate replaces Template for sequential playlist batches.
	SequenceTemplate string

	// SequenceWidth is the minimum zero-padded width of {num}. The digit
	// count of the batch size is used when it is wider.
	SequenceWidth int

	// Sequential requests sequence-numbered names for playlists.
	Sequential bool
}

// DefaultPolicy returns the policy used when nothing is configured.
func DefaultPolicy() Policy {
	return Policy{
		Template:         DefaultTemplate,
		SequenceTemplate: DefaultSequenceTemplate,
	}
}

// EffectiveTemplate returns the template to expand for a batch.
func (p Policy) EffectiveTemplate(playlist bool) string {
	if playlist && p.Sequential {
		if p.SequenceTemplate == "" {
			return DefaultSequenceTemplate
		}
		return p.SequenceTemplate
	}
	if p.Template == "" {
		return DefaultTemplate
	}
	return p.Template
}

// Validate checks every template the policy may select.
func (p Policy) Validate() error {
	if p.SequenceWidth < 0 {
		return fmt.Errorf("%w: negative sequence width %d", ErrPolicy, p.SequenceWidth)
	}
	if err := Validate(p.EffectiveTemplate(false)); err != nil {
		return err
	}
	if p.Sequential {
		if err := Validate(p.EffectiveTemplate(true)); err != nil {
			return err
		}
	}
	return nil
}
