// Package fuzzy reconciles local file tags against catalog search results.
//
// [Normalize] keeps only letters, digits, spaces and hyphens. Comparison uses three
// distances (overlap coefficient, longest common subsequence, longest common substring)
// averaged and checked against a [Tolerance].
//
// [Matcher.Match] is first-match: candidates are walked in the order the catalog
// returned them and the first one passing on both name and artist wins.
package fuzzy
