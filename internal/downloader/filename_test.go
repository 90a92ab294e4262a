package downloader

import "testing"

func TestBaseNameFromDisposition(t *testing.T) {
	tests := []struct {
		name        string
		disposition string
		want        string
	}{
		{"empty", "", "files"},
		{"quoted", `attachment; filename="catalina-2024-03-05.zip"`, "catalina-2024-03-05"},
		{"unquoted", `attachment; filename=universe.zip`, "universe"},
		{"stacked extensions", `attachment; filename="logs.tar.gz"`, "logs"},
		{"tgz", `attachment; filename="logs.tgz"`, "logs"},
		{"upper case extension", `attachment; filename="LOGS.ZIP"`, "LOGS"},
		{"no extension", `attachment; filename="report"`, "report"},
		{"other extension kept", `attachment; filename="report.txt"`, "report.txt"},
		{"only extension", `attachment; filename=".zip"`, "files"},
		{"no filename param", `attachment`, "files"},
		{"rfc 5987", `attachment; filename*=UTF-8''scan%2042.zip`, "scan 42"},
		{"path stripped", `attachment; filename="../../etc/scan.zip"`, "scan"},
		{"windows path stripped", `attachment; filename=C:\tmp\scan.zip`, "scan"},
		{"malformed falls back to regex", `attachment;; filename="broken.zip"`, "broken"},
		{"inline", `inline; filename="x.zip"`, "x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := BaseNameFromDisposition(tt.disposition); got != tt.want {
				t.Errorf("BaseNameFromDisposition(%q) = %q, want %q", tt.disposition, got, tt.want)
			}
		})
	}
}

func TestComposeName(t *testing.T) {
	tests := []struct {
		label, node, base string
		want              string
	}{
		{"preprod", "node1", "catalina", "preprod-node1-catalina.zip"},
		{"", "node1", "files", "node1-files.zip"},
		{"prod", "scan", "scan-42", "prod-scan-scan-42.zip"},
	}

	for _, tt := range tests {
		if got := ComposeName(tt.label, tt.node, tt.base); got != tt.want {
			t.Errorf("ComposeName(%q, %q, %q) = %q, want %q", tt.label, tt.node, tt.base, got, tt.want)
		}
	}
}
