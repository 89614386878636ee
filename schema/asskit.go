package schema

import (
	"bufio"
	"os"
	"strings"
)

// LoadAssKitDefinitions reads a columns-only interchange file exported from
// the game's development kit ("assembly kit") and returns one Definition
// per table, with no rows — used purely for reference-target discovery
// when the live archives don't ship a table (spec §3 asskit_only, §4.G).
// Grounded on rpfm_lib's assembly_kit importer (original_source/rpfm_lib):
// one line per table, a tab-separated "table_name\tversion\tfield,field,..."
// record; this is a simplified re-derivation since the distillation never
// specifies the assembly kit's exact XML shape (spec §D supplemented
// feature).
func LoadAssKitDefinitions(path string) ([]Definition, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var defs []Definition
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.Split(line, "\t")
		if len(parts) < 3 {
			continue
		}
		table := parts[0]
		fieldNames := strings.Split(parts[2], ",")
		fields := make([]Field, 0, len(fieldNames))
		for _, name := range fieldNames {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			fields = append(fields, Field{Name: name, Type: StringU8})
		}
		defs = append(defs, Definition{Table: table, Fields: fields})
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return defs, nil
}
