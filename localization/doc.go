// Package localization resolves message keys such as delivery statuses and
// export column names to display text, using YAML catalogs embedded in the
// binary.
package localization
