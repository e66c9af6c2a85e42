// Package dproj reads and edits MSBuild project descriptors of the Delphi
// toolchain (.dproj) without losing a single byte of formatting.
//
// # Document model
//
// [Parse] tokenizes the XML source and records the byte span of every
// meaningful node: property groups, properties and their value text, item
// groups, imports, and project extensions. Everything else is passthrough.
// [Document.Bytes] concatenates the source spans, substituting only the
// values changed through [Document.SetPropertyValue], so an unmodified
// document serializes to exactly the bytes it was parsed from.
//
// # Resolution
//
// A [Context] pairs a [Document] with an environment store (see package
// env) and is created with a [Builder]:
//
//	doc, err := dproj.FromFile(ctx, "Project1.dproj")
//	if err != nil { ... }
//
//	c, err := dproj.NewBuilder().
//		WithRsvarsFile(`C:\Program Files (x86)\Embarcadero\Studio\23.0\bin\rsvars.bat`).
//		WithOverride("BDSCOMMONDIR", `D:\Common`).
//		Build(doc)
//	if err != nil { ... }
//
//	active, err := c.ActivePropertyGroupFor("Release", "Win64")
//	if err != nil { ... }
//
//	out, err := active.Resolve("DCC_ExeOutput")
//
// Property groups are selected by evaluating their Condition attribute with
// Config, Configuration, and Platform bound to the requested pair. Groups
// that match are merged in document order, the last definition of a name
// winning. $(Name) references resolve recursively against that merged view;
// %Name% references resolve against the environment store. Unknown names
// are left in place verbatim.
//
// # Conditions
//
//	Condition   → Or
//	Or          → And ('or' And)*
//	And         → Unary ('and' Unary)*
//	Unary       → '!' Unary | Atom
//	Atom        → Exists | Comparison | '(' Or ')'
//	Exists      → 'Exists' '(' String ')'
//	Comparison  → Operand ('==' | '!=') Operand
//	Operand     → String | Property | Word
//
// Keywords are case-insensitive. Comparisons are exact and case-sensitive.
// Exists is always true; no file system access is performed.
package dproj
