package cst

// KeywordDoc is one entry of the on-line keyword help (§6), grounded on the
// teacher's printHelp tabwriter-based enumeration (util/args.go): a keyword
// or statement form paired with a one-line description, rendered in a
// fixed table a CLI's -help-keywords flag can print directly.
type KeywordDoc struct {
	Keyword     string
	Description string
}

// KeywordHelp returns the static table of DSL statement keywords this core
// recognizes, in the order spec.md §4.3 introduces them.
func KeywordHelp() []KeywordDoc {
	return []KeywordDoc{
		{"$name = expr", "Assign expr to record field name."},
		{"$[expr1] = expr2", "Assign expr2 to the record field named by expr1."},
		{"$* = @keylist", "Replace the current record with a flattened oosvar submap."},
		{"@keylist = $*", "Replace an oosvar submap with the current record's fields."},
		{"@keylist = expr", "Assign expr into the oosvar store at keylist."},
		{"var x = expr", "Declare a typed local and assign expr to it."},
		{"ENV[\"X\"] = expr", "Set a process environment variable."},
		{"if / elif / else", "Branch on a boolean condition."},
		{"while (cond) { ... }", "Loop while cond is true."},
		{"do { ... } while (cond)", "Loop at least once while cond is true."},
		{"for (init; cond; update) { ... }", "C-style counting loop."},
		{"for ((k1,...,kn), v in @m) { ... }", "Iterate an oosvar's nested map n levels deep."},
		{"for (k in @m) { ... }", "Iterate an oosvar map's keys at one level."},
		{"for (k, v in $*) { ... }", "Iterate the current record's fields."},
		{"break / continue", "Exit or restart the innermost loop."},
		{"return [expr]", "Return from a UDF (with a value) or a subroutine (void)."},
		{"call name(args)", "Invoke a subroutine."},
		{"filter expr", "Set the final record-pass flag from expr."},
		{"emit @m[, name, ...]", "Emit one record per path through a nested oosvar map."},
		{"emitp @m[, name, ...]", "Like emit, with full key-prefixed field names."},
		{"emit (@a, @b), ...", "Lashed emit: walk joined key sets, emitting aligned leaves."},
		{"emitf @a, @b, ...", "Emit one record of scalar oosvar name/value pairs."},
		{"tee > \"file\", $*", "Append the current record to a file/pipe/stdout sink."},
		{"print / printn expr, ...", "Write expr(s) to stdout, with or without a trailing newline."},
		{"dump", "Write the oosvar store to stdout as JSON."},
		{"unset target, ...", "Clear a local, oosvar subtree, or record field."},
		{"unset all", "Clear the entire oosvar store."},
	}
}
