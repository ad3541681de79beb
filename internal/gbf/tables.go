package gbf

import (
	"sort"

	"github.com/greyforge/core/internal/memview"
)

// fieldExtensionIndicator marks the end of a schema's fixed field-type list
// and the start of its extension list (currently only the sparse-field-list
// extension exists).
const fieldExtensionIndicator uint8 = 0xff

// sparseFieldListExtension is the one schema extension kind this reader
// recognizes.
const sparseFieldListExtension uint8 = 0

// Indices into the hardcoded master-table schema (see newMasterSchema).
const (
	masterTableNameIdx    = 0
	masterSchemaVerIdx    = 1
	masterRootBufferIDIdx = 2
	masterKeyTypeIdx      = 3
	masterFieldTypesIdx   = 4
	masterFieldNamesIdx   = 5
	masterIndexColumnIdx  = 6
	masterMaxKeyIdx       = 7
	masterRecordCountIdx  = 8
)

// TableDef is one table's schema plus its root block and any index tables
// registered against it (a base table's schema carries index_column == -1;
// its index tables carry the indexed column's position).
type TableDef struct {
	Schema        *TableSchema
	RootNid       int32
	MaxKey        int64
	RecordCount   int32
	IndexTableDefs []*TableDef
}

// Catalog is the parsed master table: every base table and its index
// tables, keyed by table name.
type Catalog struct {
	file       *File
	tableDefs  map[string]*TableDef
}

// Table looks up a base table by name.
func (c *Catalog) Table(name string) (*TableDef, bool) {
	td, ok := c.tableDefs[name]
	return td, ok
}

// Tables returns every base table name, sorted for deterministic iteration.
func (c *Catalog) Tables() []string {
	names := make([]string, 0, len(c.tableDefs))
	for name := range c.tableDefs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// View opens a TableView over this table definition against f.
func (td *TableDef) View(f *File) *TableView {
	return NewTableView(f, td.Schema, td.RootNid)
}

func newMasterSchema() *TableSchema {
	schema := NewTableSchema("Master table", "TableNum", FieldLong, nil)
	schema.AddColumn(FieldString, "TableName")
	schema.AddColumn(FieldInt, "SchemaVersion")
	schema.AddColumn(FieldInt, "RootBufferId")
	schema.AddColumn(FieldByte, "KeyType")
	schema.AddColumn(FieldBytes, "FieldTypes")
	schema.AddColumn(FieldString, "FieldNames")
	schema.AddColumn(FieldInt, "IndexColumn")
	schema.AddColumn(FieldLong, "MaxKey")
	schema.AddColumn(FieldInt, "RecordCount")
	return schema
}

func newCatalog(f *File, rootNid int32) (*Catalog, error) {
	baseSchema := newMasterSchema()
	tv := NewTableView(f, baseSchema, rootNid)
	it, err := NewTableViewIterator(tv, minInt64)
	if err != nil {
		return nil, err
	}

	tableDefs := make(map[string]*TableDef)

	for {
		rec, err := it.Next()
		if err != nil {
			return nil, err
		}
		if rec == nil {
			break
		}

		name, err := rec.GetString(masterTableNameIdx)
		if err != nil {
			return nil, err
		}
		rootBufferID, err := rec.GetInt(masterRootBufferIDIdx)
		if err != nil {
			return nil, err
		}
		indexColumn, err := rec.GetInt(masterIndexColumnIdx)
		if err != nil {
			return nil, err
		}
		keyType, err := rec.GetByte(masterKeyTypeIdx)
		if err != nil {
			return nil, err
		}
		fieldTypesBuf, err := rec.GetBytes(masterFieldTypesIdx)
		if err != nil {
			return nil, err
		}
		fieldNamesStr, err := rec.GetString(masterFieldNamesIdx)
		if err != nil {
			return nil, err
		}
		maxKey, err := rec.GetLong(masterMaxKeyIdx)
		if err != nil {
			return nil, err
		}
		recordCount, err := rec.GetInt(masterRecordCountIdx)
		if err != nil {
			return nil, err
		}

		keyName, fieldNamesStr := splitKeyName(fieldNamesStr)

		keyKind, ok := FieldKindFromByte(uint8(keyType))
		if !ok {
			return nil, memview.NewError(memview.Generic, "read invalid key kind %d", keyType)
		}

		fieldKinds, sparseColumns, err := parseFieldTypes(fieldTypesBuf)
		if err != nil {
			return nil, err
		}

		var fieldNames []string
		if len(fieldNamesStr) > 0 {
			fieldNames = splitFieldNames(fieldNamesStr)
		}
		if len(fieldKinds) != len(fieldNames) {
			return nil, memview.NewError(memview.Generic, "field kinds and field names length mismatch (%d != %d)", len(fieldKinds), len(fieldNames))
		}

		schema := NewTableSchema(name, keyName, keyKind, sparseColumns)
		for i, kind := range fieldKinds {
			schema.AddColumn(kind, fieldNames[i])
		}

		def := &TableDef{Schema: schema, RootNid: rootBufferID, MaxKey: maxKey, RecordCount: recordCount}

		if existing, ok := tableDefs[name]; ok {
			if indexColumn == -1 {
				return nil, memview.NewError(memview.Generic, "base table was not first")
			}
			existing.IndexTableDefs = append(existing.IndexTableDefs, def)
		} else {
			if indexColumn != -1 {
				return nil, memview.NewError(memview.Generic, "base table was not first")
			}
			tableDefs[name] = def
		}
	}

	return &Catalog{file: f, tableDefs: tableDefs}, nil
}

// splitKeyName extracts the ';'-delimited key name from the front of a
// master-table FieldNames string, returning the remaining field names
// (still ';'-delimited, trailing separator stripped).
func splitKeyName(fieldNamesStr string) (string, string) {
	for i := 0; i < len(fieldNamesStr); i++ {
		if fieldNamesStr[i] == ';' {
			keyName := fieldNamesStr[:i]
			remaining := fieldNamesStr[i+1:]
			if len(remaining) > 0 && remaining[len(remaining)-1] == ';' {
				remaining = remaining[:len(remaining)-1]
			}
			return keyName, remaining
		}
	}
	return "Key", ""
}

func splitFieldNames(s string) []string {
	var names []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ';' {
			names = append(names, s[start:i])
			start = i + 1
		}
	}
	return names
}

// parseFieldTypes decodes a FieldTypes byte buffer into its field kinds and,
// if present, the sparse-field-list extension naming which column indices
// may be omitted from a given record.
func parseFieldTypes(buf []byte) ([]FieldKind, map[int32]struct{}, error) {
	var kinds []FieldKind
	i := 0
	for i < len(buf) {
		fieldType := buf[i]
		i++
		if fieldType == fieldExtensionIndicator {
			break
		}
		kind, ok := FieldKindFromByte(fieldType)
		if !ok {
			return nil, nil, memview.NewError(memview.Generic, "read invalid field kind %d", fieldType)
		}
		kinds = append(kinds, kind)
	}

	var sparseColumns map[int32]struct{}
	for i < len(buf) {
		extType := buf[i]
		i++
		if extType != sparseFieldListExtension {
			return nil, nil, memview.NewError(memview.Generic, "read invalid extension kind %d", extType)
		}
		cols, err := parseSparseFieldList(buf, len(kinds), &i)
		if err != nil {
			return nil, nil, err
		}
		sparseColumns = cols
	}

	return kinds, sparseColumns, nil
}

func parseSparseFieldList(buf []byte, fieldCount int, i *int) (map[int32]struct{}, error) {
	cols := make(map[int32]struct{})
	for *i < len(buf) && buf[*i] != fieldExtensionIndicator {
		colIdx := int32(buf[*i])
		if int(colIdx) >= fieldCount {
			return nil, memview.NewError(memview.Generic, "sparse field column_idx %d was larger than field count %d", colIdx, fieldCount)
		}
		cols[colIdx] = struct{}{}
		*i++
	}
	return cols, nil
}

const minInt64 = -1 << 63
