package bridge

// TypeDef declares how one host type appears to script code. It is a
// plain description; all reflection checks happen at Register time so
// a malformed definition surfaces as a registration error, not a
// panic inside a script call.
type TypeDef struct {
	name     string
	ctor     any
	props    []namedProp
	cols     []namedCol
	methods  []namedMethod
	validate ValidateFunc
	notify   NotifyFunc
}

// Prop declares a scalar property. Get is required: func(R) T.
// Set is optional: func(R, T); omitting it makes the property
// read-only from script.
type Prop struct {
	Get any
	Set any
}

// Col declares a slice-valued property surfaced as a collection
// proxy. Both accessors are required: Get func(R) []E, Set func(R, []E).
type Col struct {
	Get any
	Set any
}

type namedProp struct {
	name string
	prop Prop
}

type namedCol struct {
	name string
	col  Col
}

type namedMethod struct {
	name string
	fn   any
}

// NewType starts a type definition under the given script-visible name.
func NewType(name string) *TypeDef {
	return &TypeDef{name: name}
}

// Constructor declares the factory invoked by the script constructor
// call: func(p0..pN) R or func(p0..pN) (R, error), N <= 3.
func (d *TypeDef) Constructor(fn any) *TypeDef {
	d.ctor = fn
	return d
}

// Property declares a scalar property.
func (d *TypeDef) Property(name string, p Prop) *TypeDef {
	d.props = append(d.props, namedProp{name: name, prop: p})
	return d
}

// Collection declares a slice-valued property accessed through a
// live collection proxy.
func (d *TypeDef) Collection(name string, c Col) *TypeDef {
	d.cols = append(d.cols, namedCol{name: name, col: c})
	return d
}

// Method declares a callable method: func(R, p0..pN) with an optional
// result and optional trailing error, N <= 3.
func (d *TypeDef) Method(name string, fn any) *TypeDef {
	d.methods = append(d.methods, namedMethod{name: name, fn: fn})
	return d
}

// Validate installs the type-level pre-mutation veto hook. It takes
// precedence over a Validator implemented by the object itself.
func (d *TypeDef) Validate(fn ValidateFunc) *TypeDef {
	d.validate = fn
	return d
}

// OnChange installs the type-level post-mutation observer.
func (d *TypeDef) OnChange(fn NotifyFunc) *TypeDef {
	d.notify = fn
	return d
}

// Name returns the script-visible type name.
func (d *TypeDef) Name() string {
	return d.name
}
