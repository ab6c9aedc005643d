// Package output renders CLI results as a table, JSON or YAML.
//
// Field names come from json struct tags in every format, so scripts see
// the same keys whichever format they pick. Table mode hides fields tagged
// table:"wide" unless wide output was requested.
package output
