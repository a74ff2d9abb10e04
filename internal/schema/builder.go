package schema

// NewSchema returns an empty schema with the built-in scalars and directives.
func NewSchema(description string) *Schema {
	s := &Schema{
		Types:       make(map[string]*Type),
		Directives:  make(map[string]*Directive),
		Description: description,
	}
	s.AddType(stringType).
		AddType(intType).
		AddType(floatType).
		AddType(booleanType).
		AddType(idType)
	s.AddDirective(includeDirective).
		AddDirective(skipDirective).
		AddDirective(deprecatedDirective).
		AddDirective(specifiedByDirective)
	return s
}

func (s *Schema) SetQueryType(name string) *Schema { s.QueryType = name; return s }
func (s *Schema) SetMutationType(name string) *Schema { s.MutationType = name; return s }
func (s *Schema) SetSubscriptionType(name string) *Schema { s.SubscriptionType = name; return s }

// AddType registers t, replacing any type with the same name in place.
func (s *Schema) AddType(t *Type) *Schema {
	if _, ok := s.Types[t.Name]; !ok {
		s.typeOrder = append(s.typeOrder, t.Name)
	}
	s.Types[t.Name] = t
	return s
}

func (s *Schema) AddDirective(d *Directive) *Schema {
	s.Directives[d.Name] = d
	return s
}

// clone returns a shallow copy whose type and directive maps can be extended
// without touching s.
func (s *Schema) clone() *Schema {
	out := &Schema{
		QueryType:        s.QueryType,
		MutationType:     s.MutationType,
		SubscriptionType: s.SubscriptionType,
		Types:            make(map[string]*Type, len(s.Types)),
		Directives:       make(map[string]*Directive, len(s.Directives)),
		Description:      s.Description,
		typeOrder:        append([]string(nil), s.typeOrder...),
	}
	for k, v := range s.Types {
		out.Types[k] = v
	}
	for k, v := range s.Directives {
		out.Directives[k] = v
	}
	return out
}

func NewType(name string, kind TypeKind, description string) *Type {
	return &Type{Name: name, Kind: kind, Description: description}
}

func (t *Type) AddField(f *Field) *Type { t.Fields = append(t.Fields, f); return t }
func (t *Type) AddInterface(name string) *Type { t.Interfaces = append(t.Interfaces, name); return t }
func (t *Type) AddPossibleType(name string) *Type { t.PossibleTypes = append(t.PossibleTypes, name); return t }
func (t *Type) AddEnumValue(v *EnumValue) *Type { t.EnumValues = append(t.EnumValues, v); return t }
func (t *Type) AddInputField(v *InputValue) *Type { t.InputFields = append(t.InputFields, v); return t }
func (t *Type) SetOneOf(oneOf bool) *Type { t.OneOf = oneOf; return t }
func (t *Type) SetSpecifiedByURL(url string) *Type { t.SpecifiedByURL = &url; return t }

// Copy returns a copy of t whose slices may be appended to independently.
func (t *Type) Copy() *Type {
	out := *t
	out.Fields = append([]*Field(nil), t.Fields...)
	out.Interfaces = append([]string(nil), t.Interfaces...)
	out.PossibleTypes = append([]string(nil), t.PossibleTypes...)
	out.EnumValues = append([]*EnumValue(nil), t.EnumValues...)
	out.InputFields = append([]*InputValue(nil), t.InputFields...)
	return &out
}

func NewField(name, description string, typ *TypeRef) *Field {
	return &Field{Name: name, Description: description, Type: typ}
}

func (f *Field) AddArgument(arg *InputValue) *Field { f.Arguments = append(f.Arguments, arg); return f }

func (f *Field) Deprecate(reason string) *Field {
	f.IsDeprecated = true
	f.DeprecationReason = reason
	return f
}

func NewInputValue(name, description string, typ *TypeRef) *InputValue {
	return &InputValue{Name: name, Description: description, Type: typ}
}

func (v *InputValue) SetDefault(value any) *InputValue { v.DefaultValue = value; return v }

func (v *InputValue) Deprecate(reason string) *InputValue {
	v.IsDeprecated = true
	v.DeprecationReason = reason
	return v
}

func NewEnumValue(name, description string) *EnumValue {
	return &EnumValue{Name: name, Description: description}
}

func (v *EnumValue) Deprecate(reason string) *EnumValue {
	v.IsDeprecated = true
	v.DeprecationReason = reason
	return v
}

func NewDirective(name, description string) *Directive {
	return &Directive{Name: name, Description: description}
}

func (d *Directive) AddArgument(arg *InputValue) *Directive { d.Arguments = append(d.Arguments, arg); return d }
func (d *Directive) SetRepeatable(r bool) *Directive { d.IsRepeatable = r; return d }
