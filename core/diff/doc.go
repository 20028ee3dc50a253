// Package diff detects differences between environment snapshots.
//
// Every comparator is an instance of one generic algorithm: extract the
// top-level entities of each snapshot, extract their children, and insert the
// normalized child value at entity -> attribute -> snapshot in an EntityMap.
// A Spec supplies the extractors, the value normalizer and the rules that
// apply to the comparator.
//
// # Differences
//
// An attribute differs when the snapshots holding it disagree on its value.
// Absence is never a value: an entity or attribute missing from some
// snapshots is reported as absent or missing, not as a changed value.
//
// For permission comparators, inherited values (any value containing
// INHERIT) are left out of the comparison unless every present value is
// inherited. An explicit value next to an inherited one is therefore not a
// difference, while two different explicit values are.
//
// # Reports
//
// Comparators return a Report whose rows are sorted by entity, with changed
// attributes sorted inside each row. Reports can be rendered as aligned text
// tables or serialized as JSON.
package diff
