// Package model defines the typed field model shared by the evaluator,
// validation gate and measure projector. Content is an ordered slice of
// Field values so declaration order survives without an ordered map.
// Dynamic fields carry a Render function that is evaluated against the
// current Answers; a nil result means the field is not part of the form in
// that state. Record-array fields own a nested Fieldset that is resolved
// independently for every repeated element.
package model
