package mapping

// IssueSeverity grades a reported column issue. Errors block the import
// until corrected or skipped; warnings do not.
type IssueSeverity string

const (
	SeverityError   IssueSeverity = "error"
	SeverityWarning IssueSeverity = "warning"
)

// ColumnIssue is one distinct failing value within a mapped column,
// aggregated over all rows carrying it.
type ColumnIssue struct {
	Value    string        `json:"value"`
	Message  string        `json:"message"`
	RowCount int           `json:"rowCount"`
	Severity IssueSeverity `json:"severity"`
}

// ColumnAnalysisResult summarizes one mapped column after validating every
// row against the target field's rules.
type ColumnAnalysisResult struct {
	SourceColumn   string        `json:"sourceColumn"`
	TargetFieldKey string        `json:"targetFieldKey"`
	TotalRows      int           `json:"totalRows"`
	UniqueCount    int           `json:"uniqueCount"`
	BlankCount     int           `json:"blankCount"`
	IsRequired     bool          `json:"isRequired"`
	Issues         []ColumnIssue `json:"issues"`
}

func (r *ColumnAnalysisResult) HasBlockingIssues() bool {
	for _, issue := range r.Issues {
		if issue.Severity == SeverityError {
			return true
		}
	}
	return false
}

func (r *ColumnAnalysisResult) AddIssue(issue ColumnIssue) {
	for i, existing := range r.Issues {
		if existing.Value == issue.Value {
			r.Issues[i] = issue
			return
		}
	}
	r.Issues = append(r.Issues, issue)
}

// RemoveIssue drops the issue recorded for a value, typically after the
// operator corrected or skipped it.
func (r *ColumnAnalysisResult) RemoveIssue(value string) {
	for i, issue := range r.Issues {
		if issue.Value == value {
			r.Issues = append(r.Issues[:i], r.Issues[i+1:]...)
			return
		}
	}
}

func (r *ColumnAnalysisResult) IssueFor(value string) (ColumnIssue, bool) {
	for _, issue := range r.Issues {
		if issue.Value == value {
			return issue, true
		}
	}
	return ColumnIssue{}, false
}
