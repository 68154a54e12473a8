package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const requestJSON = `{
  "customerId": "C-1001",
  "customerData": {
    "profile": {"name": "Rajesh Kumar", "status": "high", "creditScore": 640, "creditScoreStatus": "Fair"},
    "financialSummary": {"monthlyIncome": 45000, "monthlyExpenses": 41000, "totalAssets": 250000,
                         "totalLiabilities": 180000, "netWorth": 70000, "totalDebt": 180000},
    "riskAssessment": {"riskPercentage": 62},
    "recentTransactions": [],
    "alerts": []
  },
  "charts": {"not-a-chart": "data:image/png;base64,AAAA"}
}`

func execute(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func assertPDF(t *testing.T, path string) {
	t.Helper()
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	if !bytes.HasPrefix(raw, []byte("%PDF-")) {
		t.Errorf("%s is not a PDF", path)
	}
}

func TestCustomer_FromFile(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "request.json")
	if err := os.WriteFile(in, []byte(requestJSON), 0o644); err != nil {
		t.Fatal(err)
	}

	out, errOut, err := execute(t, "", "customer", "--in", in, "--out", dir)
	if err != nil {
		t.Fatalf("customer: %v", err)
	}
	want := filepath.Join(dir, "rajesh-kumar-report.pdf")
	if !strings.HasPrefix(out, want) {
		t.Errorf("stdout = %q, want path %s", out, want)
	}
	if !strings.Contains(errOut, "not-a-chart") {
		t.Errorf("stderr = %q, want ignored chart key reported", errOut)
	}
	assertPDF(t, want)
}

func TestCustomer_FromStdin(t *testing.T) {
	dir := t.TempDir()
	if _, _, err := execute(t, requestJSON, "customer", "--in", "-", "-o", dir); err != nil {
		t.Fatalf("customer: %v", err)
	}
	assertPDF(t, filepath.Join(dir, "rajesh-kumar-report.pdf"))
}

func TestCustomer_InvalidSnapshot(t *testing.T) {
	_, _, err := execute(t, `{"customerId": "C-1", "customerData": {"profile": {}}}`, "customer", "--in", "-", "-o", t.TempDir())
	if err == nil || !strings.Contains(err.Error(), "required") {
		t.Fatalf("err = %v, want validation error", err)
	}
}

func TestCustomer_RequiresIn(t *testing.T) {
	if _, _, err := execute(t, "", "customer"); err == nil {
		t.Fatal("expected missing --in error")
	}
}

func TestBulk(t *testing.T) {
	dir := t.TempDir()
	out, _, err := execute(t, "", "bulk", "C-1", "C-2", "--type", "Critical Customers", "-o", dir)
	if err != nil {
		t.Fatalf("bulk: %v", err)
	}
	if !strings.Contains(out, "critical-customers-report-") {
		t.Errorf("stdout = %q", out)
	}
	matches, _ := filepath.Glob(filepath.Join(dir, "critical-customers-report-*.pdf"))
	if len(matches) != 1 {
		t.Fatalf("expected one bulk pdf, got %v", matches)
	}
	assertPDF(t, matches[0])
}

func TestPlaceholder(t *testing.T) {
	dir := t.TempDir()
	if _, _, err := execute(t, "", "placeholder", "R-42", "-o", dir); err != nil {
		t.Fatalf("placeholder: %v", err)
	}
	assertPDF(t, filepath.Join(dir, "report-R-42.pdf"))
}

func TestNarrativeConfig_Invalid(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "narrative.yaml")
	if err := os.WriteFile(cfg, []byte("not: [valid"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, _, err := execute(t, "", "placeholder", "R-1", "-o", dir, "--narrative-config", cfg); err == nil {
		t.Fatal("expected narrative config error")
	}
}

func TestHistory_RequiresDatabase(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	_, _, err := execute(t, "", "history", "C-1001")
	if err == nil || !strings.Contains(err.Error(), "DATABASE_URL") {
		t.Fatalf("err = %v", err)
	}
}

func TestPlaceholder_RejectsPathInID(t *testing.T) {
	root := t.TempDir()
	out := filepath.Join(root, "out")
	for _, id := range []string{"x/../../escaped", `x\..\escaped`} {
		if _, _, err := execute(t, "", "placeholder", id, "-o", out); err == nil {
			t.Errorf("placeholder %q: expected error", id)
		}
	}
	if matches, _ := filepath.Glob(filepath.Join(root, "*.pdf")); len(matches) != 0 {
		t.Errorf("files written outside --out: %v", matches)
	}
}

func TestCustomer_RejectsPathInName(t *testing.T) {
	root := t.TempDir()
	req := strings.Replace(requestJSON, `"Rajesh Kumar"`, `"../../Rajesh Kumar"`, 1)
	if _, _, err := execute(t, req, "customer", "--in", "-", "-o", filepath.Join(root, "a", "b")); err == nil {
		t.Fatal("expected error for customer name containing a path")
	}
	if matches, _ := filepath.Glob(filepath.Join(root, "*.pdf")); len(matches) != 0 {
		t.Errorf("files written outside --out: %v", matches)
	}
}
