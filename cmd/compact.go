package cmd

import (
	"context"
	"fmt"
	"os"
)

// Compact compacts the vault database to reclaim unused space
func Compact(ctx context.Context) {
	a := OpenApp(ctx, AppOptions{})
	defer a.Close()

	path := a.Storage.Path()
	info, err := os.Stat(path)
	if err != nil {
		a.Fail(err)
	}
	sizeBefore := info.Size()

	if err := a.Storage.Compact(); err != nil {
		a.Fail(err)
	}

	info, err = os.Stat(path)
	if err != nil {
		a.Fail(err)
	}
	sizeAfter := info.Size()

	fmt.Printf("Compacted: %s -> %s\n", formatSize(sizeBefore), formatSize(sizeAfter))
}

func formatSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}
