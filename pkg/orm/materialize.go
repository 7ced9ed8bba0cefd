package orm

// Materialize renders a Valid tracked object as the JSON value
// spec.md section 4.8 step 5 describes: single-cardinality primitive
// predicates become scalars, multi-cardinality ones become arrays,
// a single-cardinality nested predicate becomes an embedded object,
// and a multi-cardinality nested predicate becomes a
// `{"{graph}|{subject}": object}` map. Every object carries `@id` and
// `@graph`.
func (s *Subscription) Materialize(key ObjectKey) (map[string]interface{}, error) {
	obj, ok := s.objects[key]
	if !ok || obj.Valid != Valid {
		return nil, nil
	}
	return s.materialize(key, make(map[ObjectKey]bool))
}

func (s *Subscription) materialize(key ObjectKey, visited map[ObjectKey]bool) (map[string]interface{}, error) {
	if visited[key] {
		// A validated cycle: emit the reference without recursing again.
		return map[string]interface{}{"@id": key.Subject, "@graph": key.Graph}, nil
	}
	visited[key] = true

	obj, ok := s.objects[key]
	if !ok {
		return nil, nil
	}
	shape, ok := s.schema[key.Shape]
	if !ok {
		return nil, nil
	}

	out := map[string]interface{}{"@id": key.Subject, "@graph": key.Graph}
	for _, pred := range shape.Predicates {
		tp := obj.Predicates[pred.IRI]
		name := pred.ReadableName
		if name == "" {
			name = pred.IRI
		}
		multi := pred.unbounded() || pred.MaxCardinality > 1

		if _, isShape := pred.nestedShape(); isShape {
			if tp == nil || len(tp.Children) == 0 {
				continue
			}
			if multi {
				children := make(map[string]interface{})
				for c := range tp.Children {
					if co, ok := s.objects[c]; ok && co.Valid == Valid {
						childVal, err := s.materialize(c, visited)
						if err != nil {
							return nil, err
						}
						children[c.Graph+"|"+c.Subject] = childVal
					}
				}
				if len(children) > 0 {
					out[name] = children
				}
			} else {
				for c := range tp.Children {
					if co, ok := s.objects[c]; ok && co.Valid == Valid {
						childVal, err := s.materialize(c, visited)
						if err != nil {
							return nil, err
						}
						out[name] = childVal
						break
					}
				}
			}
			continue
		}

		if tp == nil {
			continue
		}
		if multi {
			var values []string
			for v, n := range tp.Literals {
				if n > 0 {
					values = append(values, v)
				}
			}
			if len(values) > 0 {
				out[name] = values
			}
		} else {
			for v, n := range tp.Literals {
				if n > 0 {
					out[name] = v
					break
				}
			}
		}
	}
	return out, nil
}
