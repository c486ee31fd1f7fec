// Package loader reads scenario files and preprocesses them into executable items.
//
// Scenario files are YAML (JSON documents are accepted as well). A file holds a
// single item definition, usually a suite; a file holding a list is treated as
// a suite of those items. References are resolved relative to the $baseDir of
// the context, which is the directory of the including file.
//
// Preprocessing assigns every item a unique $id and, when it has none, a name
// of the form "$<type>-<id>". It resolves the item context from the inherited
// context and the item defaults and overrides, and delegates the rest to the
// plugin registered for the item type.
package loader
