// ABOUTME: Parameter synchronization and rendering for prompts
// ABOUTME: Keeps the parameter list in step with the body's placeholders

package prompt

import "github.com/nainya/promptvault/pkg/template"

// Descriptors returns the placeholders of the prompt body
func (p *Prompt) Descriptors() []template.Descriptor {
	return template.ExtractDescriptors(p.Body)
}

// SyncParameters rebuilds the parameter list from descriptors. Surviving keys
// keep their value and default; new keys start empty; keys that are no longer
// placeholders are dropped. The result follows descriptor order.
func (p *Prompt) SyncParameters(descriptors []template.Descriptor) {
	existing := make(map[string]Parameter, len(p.Parameters))
	for _, param := range p.Parameters {
		existing[param.Key] = param
	}

	synced := make([]Parameter, 0, len(descriptors))
	for _, d := range descriptors {
		param, ok := existing[d.Key]
		if !ok {
			param = Parameter{Key: d.Key}
		}

		param.Kind = d.Kind
		switch d.Kind {
		case template.KindEnumeration:
			param.Options = append([]string(nil), d.Options...)
			if param.DefaultValue == nil && !d.HasOption(param.Value) {
				first := d.Options[0]
				param.DefaultValue = &first
			}
		case template.KindText:
			param.Options = nil
		}

		synced = append(synced, param)
	}

	p.Parameters = synced
}

// Sync is SyncParameters applied to the prompt's own body
func (p *Prompt) Sync() {
	p.SyncParameters(p.Descriptors())
}

// Values maps each key to its value, or to its default when the value is
// empty. Keys with neither are omitted so they render as missing.
func (p *Prompt) Values() map[string]string {
	values := make(map[string]string, len(p.Parameters))
	for _, param := range p.Parameters {
		switch {
		case param.Value != "":
			values[param.Key] = param.Value
		case param.DefaultValue != nil && *param.DefaultValue != "":
			values[param.Key] = *param.DefaultValue
		}
	}
	return values
}

// Render renders the body with the prompt's parameter values
func (p *Prompt) Render() template.RenderResult {
	return template.Render(p.Body, p.Values())
}

// ApplyOptions rewrites every occurrence of the edited placeholders in the
// body and resyncs parameters
func (p *Prompt) ApplyOptions(descriptors []template.Descriptor) {
	p.Body = template.Rewrite(p.Body, descriptors)
	p.Sync()
}

// SetValue sets the value of an existing parameter. It reports false when
// the key is unknown.
func (p *Prompt) SetValue(key, value string) bool {
	for i := range p.Parameters {
		if p.Parameters[i].Key == key {
			p.Parameters[i].Value = value
			return true
		}
	}
	return false
}
