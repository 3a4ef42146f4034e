package ocr

import "time"

const (
	defaultBaseBackoff = 30 * time.Second
	defaultMaxBackoff  = 10 * time.Minute
)

// Backoff は指数バックオフの設定です。
type Backoff struct {
	Base time.Duration
	Max  time.Duration
}

// Delay は attempt 回目 (1 始まり) の失敗後に待つ時間 base * 2^(attempt-1) を max で頭打ちにして返します。
func (b Backoff) Delay(attempt int) time.Duration {
	base := b.Base
	if base <= 0 {
		base = defaultBaseBackoff
	}
	max := b.Max
	if max <= 0 {
		max = defaultMaxBackoff
	}
	if attempt < 1 {
		attempt = 1
	}

	d := base
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= max || d <= 0 {
			return max
		}
	}
	if d > max {
		return max
	}
	return d
}
