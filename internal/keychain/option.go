package keychain

// Opt is an optional value. The zero Opt is absent.
type Opt[T any] struct {
	v  T
	ok bool
}

// Some returns a present Opt holding v.
func Some[T any](v T) Opt[T] {
	return Opt[T]{v: v, ok: true}
}

// None returns an absent Opt.
func None[T any]() Opt[T] {
	return Opt[T]{}
}

// FromPtr converts a nil-able pointer, as produced by YAML or flag decoding.
func FromPtr[T any](p *T) Opt[T] {
	if p == nil {
		return None[T]()
	}
	return Some(*p)
}

func (o Opt[T]) Get() (T, bool) { return o.v, o.ok }

func (o Opt[T]) IsSome() bool { return o.ok }

// OrElse returns the held value, or def when absent.
func (o Opt[T]) OrElse(def T) T {
	if o.ok {
		return o.v
	}
	return def
}
