package keychain

// Attr is a vault attribute identifier. Values match the raw Security
// framework constants so descriptors can be compared with what the
// keychain itself reports.
type Attr string

const (
	AttrClass            Attr = "class"        // kSecClass
	AttrAccount          Attr = "acct"         // kSecAttrAccount
	AttrAccessGroup      Attr = "agrp"         // kSecAttrAccessGroup
	AttrService          Attr = "svce"         // kSecAttrService
	AttrSynchronizable   Attr = "sync"         // kSecAttrSynchronizable
	AttrAccessible       Attr = "pdmn"         // kSecAttrAccessible
	AttrReturnData       Attr = "r_Data"       // kSecReturnData
	AttrReturnAttributes Attr = "r_Attributes" // kSecReturnAttributes
	AttrMatchLimit       Attr = "m_Limit"      // kSecMatchLimit
	AttrValueData        Attr = "v_Data"       // kSecValueData
	AttrDataProtection   Attr = "nleg"         // kSecUseDataProtectionKeychain
)

const (
	// ClassGenericPassword is kSecClassGenericPassword.
	ClassGenericPassword = "genp"

	MatchLimitOne = "m_LimitOne"
	MatchLimitAll = "m_LimitAll"
)

// Descriptor is a transient query or mutation specification. Only attributes
// that are meant to filter or set something are present.
type Descriptor map[Attr]any

// Query holds the optional dimensions a Descriptor is built from.
type Query struct {
	Key        Opt[string]
	Group      Opt[string]
	Namespace  Opt[string]
	Sync       Opt[bool]
	ReturnData Opt[bool]
	Strict     Opt[bool]
}

// BuildQuery returns a generic-password descriptor with one entry per present
// field of q. String values are passed through unvalidated, empty strings
// included. Strict is dropped when strictSupported is false.
func BuildQuery(q Query, strictSupported bool) Descriptor {
	d := Descriptor{AttrClass: ClassGenericPassword}
	if v, ok := q.Key.Get(); ok {
		d[AttrAccount] = v
	}
	if v, ok := q.Group.Get(); ok {
		d[AttrAccessGroup] = v
	}
	if v, ok := q.Namespace.Get(); ok {
		d[AttrService] = v
	}
	if v, ok := q.Sync.Get(); ok {
		d[AttrSynchronizable] = v
	}
	if v, ok := q.ReturnData.Get(); ok {
		d[AttrReturnData] = v
	}
	if strictSupported {
		if v, ok := q.Strict.Get(); ok {
			d[AttrDataProtection] = v
		}
	}
	return d
}

// With returns a copy of d with attr set to v.
func (d Descriptor) With(attr Attr, v any) Descriptor {
	c := d.Clone()
	c[attr] = v
	return c
}

// Clone returns a shallow copy of d.
func (d Descriptor) Clone() Descriptor {
	c := make(Descriptor, len(d)+2)
	for k, v := range d {
		c[k] = v
	}
	return c
}

// Text returns attr as a string, if present with that type.
func (d Descriptor) Text(attr Attr) (string, bool) {
	v, ok := d[attr].(string)
	return v, ok
}

func (d Descriptor) Flag(attr Attr) (bool, bool) {
	v, ok := d[attr].(bool)
	return v, ok
}

func (d Descriptor) Bytes(attr Attr) ([]byte, bool) {
	v, ok := d[attr].([]byte)
	return v, ok
}

func (d Descriptor) Accessible() (Accessibility, bool) {
	v, ok := d[AttrAccessible].(Accessibility)
	return v, ok
}

// Strict reports whether d targets the data protection keychain.
func (d Descriptor) Strict() bool {
	v, _ := d.Flag(AttrDataProtection)
	return v
}
