package fixture

import "github.com/hanpama/graphmock/internal/response"

// Merge overlays f onto synthesized data and appends its errors after errs.
//
// Objects present in both trees are merged key by key. Scalars and lists in
// the fixture replace the synthesized value wholesale, and an explicit null
// overrides to null. Keys the query did not select are ignored, so the
// result keeps the synthesized shape. A replacing list is copied as is.
//
// When mockErrors is false the returned errors are always empty. Neither
// data nor f is modified.
func Merge(data *response.Object, errs []*response.Error, f *Fixture, mockErrors bool) (*response.Object, []*response.Error) {
	out := data
	all := make([]*response.Error, 0, len(errs))
	all = append(all, errs...)

	if f != nil {
		switch f.Data.Kind {
		case Null:
			out = nil
		case Object:
			if data != nil {
				out = overlayObject(data, f.Data)
			}
		}
		for _, e := range f.Errors {
			all = append(all, e.Clone())
		}
	}

	if !mockErrors {
		return out, []*response.Error{}
	}
	return out, all
}

func overlayObject(synth *response.Object, fx Value) *response.Object {
	out := response.NewObject()
	for _, key := range synth.Keys() {
		sv, _ := synth.Get(key)
		fv := fx.Get(key)
		if fv.Kind == Absent {
			out.Set(key, sv)
			continue
		}
		out.Set(key, overlayValue(sv, fv))
	}
	return out
}

func overlayValue(synth any, fv Value) any {
	switch fv.Kind {
	case Null:
		return nil
	case Scalar:
		return fv.Scalar
	case Object:
		if obj, ok := synth.(*response.Object); ok && obj != nil {
			return overlayObject(obj, fv)
		}
		return fv.Interface()
	case List:
		return fv.Interface()
	default:
		return synth
	}
}
