package internal

type ItemSource string

const (
	SourceUpload     ItemSource = "upload"
	SourceEmailAttch ItemSource = "email_attachment"
	SourceEmailHTML  ItemSource = "email_html"
	SourceWatchDir   ItemSource = "watch_dir"
)

// ComponentRow is one line of a module's tool component table. Values stay
// as written in the file; numbers are only interpreted when highlighting.
type ComponentRow struct {
	Component string `json:"component"`
	Material  string `json:"material"`
	Treatment string `json:"treatment"`
	Qty       string `json:"qty"`
	UnitCost  string `json:"unitCost"`
	TotalCost string `json:"totalCost"`
}

// ModuleRecord holds one "#"-delimited section. Summary mirrors the fields
// whose names look like aggregates; the order slices keep first-seen key order.
type ModuleRecord struct {
	Fields       map[string]string `json:"fields"`
	FieldOrder   []string          `json:"-"`
	Summary      map[string]string `json:"summary"`
	SummaryOrder []string          `json:"-"`
	Table        []ComponentRow    `json:"table"`
}

func NewModuleRecord() *ModuleRecord {
	return &ModuleRecord{
		Fields:  map[string]string{},
		Summary: map[string]string{},
		Table:   []ComponentRow{},
	}
}

func (m *ModuleRecord) SetField(key, value string) {
	if _, ok := m.Fields[key]; !ok {
		m.FieldOrder = append(m.FieldOrder, key)
	}
	m.Fields[key] = value
}

func (m *ModuleRecord) SetSummary(key, value string) {
	if _, ok := m.Summary[key]; !ok {
		m.SummaryOrder = append(m.SummaryOrder, key)
	}
	m.Summary[key] = value
}

// FindComponent returns the first row for name; later duplicates are ignored.
func (m *ModuleRecord) FindComponent(name string) (ComponentRow, bool) {
	for _, row := range m.Table {
		if row.Component == name {
			return row, true
		}
	}
	return ComponentRow{}, false
}

type Document struct {
	Filename    string                   `json:"filename"`
	Modules     map[string]*ModuleRecord `json:"modules"`
	ModuleOrder []string                 `json:"moduleOrder"`
	OrphanLines int                      `json:"orphanLines"`
}

func (d Document) Module(name string) *ModuleRecord {
	if d.Modules == nil {
		return nil
	}
	return d.Modules[name]
}

type RowKind string

const (
	RowSummary   RowKind = "summary"
	RowField     RowKind = "field"
	RowComponent RowKind = "component"
)

type CellMark string

const (
	MarkNone CellMark = ""
	MarkMin  CellMark = "min"
	MarkMax  CellMark = "max"
)

// NoData is what a missing cell displays as.
const NoData = "-"

type Cell struct {
	Value   string   `json:"value"`
	Present bool     `json:"present"`
	Mark    CellMark `json:"mark,omitempty"`
}

func (c Cell) Display() string {
	if !c.Present {
		return NoData
	}
	return c.Value
}

type ComparisonRow struct {
	Kind      RowKind `json:"kind"`
	Label     string  `json:"label"`
	Key       string  `json:"key"`
	Component string  `json:"component,omitempty"`
	Property  string  `json:"property,omitempty"`
	Numeric   bool    `json:"numeric"`
	Cells     []Cell  `json:"cells"`
}

type ModuleView struct {
	Name string          `json:"name"`
	Rows []ComparisonRow `json:"rows"`
}

type ComparisonView struct {
	Filenames []string     `json:"filenames"`
	Modules   []ModuleView `json:"modules"`
}

type EmailRow struct {
	ID         int
	Provider   string
	MessageID  string
	Subject    string
	Sender     string
	ReceivedAt string
	Hash       string
	Status     string
	RawRef     string
}

type FetchedMailMessage struct {
	Provider   string
	MessageID  string
	Subject    string
	From       string
	ReceivedAt string
	Raw        []byte
}

type QuotationRow struct {
	ID        int
	EmailID   int
	Source    string
	Filename  string
	Subject   string
	Sender    string
	Content   string
	Hash      string
	CreatedAt string
}

type ToolCostRecord struct {
	ID            int    `json:"id"`
	ToolType      string `json:"tool_type"`
	ProgramName   string `json:"program_name"`
	PartName      string `json:"part_name"`
	PartVersion   string `json:"part_version"`
	QuotationDate string `json:"quotation_date"`
	SupplierName  string `json:"supplier_name"`
	DataJSON      string `json:"data_json"`
}
