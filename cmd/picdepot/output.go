package main

import (
	"fmt"
	"os"
	"time"

	"picdepot/internal/api"
	"picdepot/internal/format"
)

var outputFormatter format.Formatter = format.JSONFormatter{}

func writeStructured(payload any) error {
	return outputFormatter.Write(os.Stdout, payload)
}

func writePlain(format string, args ...any) error {
	_, err := fmt.Fprintf(os.Stdout, format, args...)
	return err
}

func writeObjectList(objects []api.ObjectResponse) error {
	for _, obj := range objects {
		if err := writePlain("%s\n", formatObjectLine(obj)); err != nil {
			return err
		}
	}
	return nil
}

func writeObjectDetail(obj api.ObjectResponse) error {
	lines := []string{
		fmt.Sprintf("hash: %s", obj.Hash),
		fmt.Sprintf("size: %s", formatBytes(obj.Size)),
		fmt.Sprintf("mime: %s", obj.MIME),
		fmt.Sprintf("created_at: %s", formatTime(obj.CreatedAt)),
		fmt.Sprintf("access_count: %d", obj.AccessCount),
	}
	if obj.OwnerID != 0 {
		lines = append(lines, fmt.Sprintf("owner: %d", obj.OwnerID))
	}
	if obj.LastAccessed != nil {
		lines = append(lines, fmt.Sprintf("last_accessed: %s", formatTime(*obj.LastAccessed)))
	}
	if obj.OriginalFilename != "" {
		lines = append(lines, fmt.Sprintf("filename: %s", obj.OriginalFilename))
	}

	for _, line := range lines {
		if err := writePlain("%s\n", line); err != nil {
			return err
		}
	}
	return nil
}

func writeQuotaDetail(quota api.QuotaResponse) error {
	limit := "unlimited"
	if quota.QuotaLimit != nil {
		limit = formatBytes(*quota.QuotaLimit)
	}
	remaining := "unlimited"
	if quota.Remaining >= 0 {
		remaining = formatBytes(quota.Remaining)
	}
	return writePlain("tenant %d: used %s, limit %s, remaining %s\n",
		quota.TenantID, formatBytes(quota.UsedBytes), limit, remaining)
}

func writeCleanupResult(result api.CleanupResponse) error {
	return writePlain("removed %d entries (%s freed), %d entries (%s) remain\n",
		result.RemovedCount, formatBytes(result.FreedBytes),
		result.RemainingCount, formatBytes(result.RemainingBytes))
}

func formatObjectLine(obj api.ObjectResponse) string {
	name := obj.OriginalFilename
	if name == "" {
		name = "-"
	}
	return fmt.Sprintf("%s  %10s  %-12s  %s", obj.Hash, formatBytes(obj.Size), obj.MIME, name)
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
