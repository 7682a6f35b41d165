package progress

import "fmt"

// Clock formats a non-negative second count as MM:SS with unbounded minutes.
func Clock(seconds int) string {
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}
