// Package simulator returns canned review texts in place of a language model.
package simulator

import (
	"math/rand/v2"
	"sync"
	"time"
)

const (
	// NoIssues is the canned "nothing found" review.
	NoIssues = "審査の結果、問題は見つかりませんでした。(シミュレーション)"

	// Violation is the canned review pointing at a salary problem.
	Violation = `・**問題点がある箇所**: 給与セクション (シミュレーション)
・**問題の内容**: 「月給20万円」とのみ記載されていますが、最低賃金の明示方法として、手当が含まれる場合はその内訳（例：一律〇〇手当）を明記する必要があります。また、固定残業代が含まれる場合は、その金額、充当時間数、超過分の追加支給の旨の3点の記載が必須です。(シミュレーションによる指摘)
・**修正提案**: 例：「月給20万円（基本給18万円 + 一律住宅手当2万円）」のように手当内訳を明記してください。固定残業代が含まれる場合は、「固定残業代〇円（〇時間分）を含む。超過分は別途支給。」のように3点を明記してください。(シミュレーションによる提案)`
)

// Simulator picks one of the canned reviews with even odds.
type Simulator struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// New returns a Simulator drawing from src. A nil src is seeded from the clock.
func New(src rand.Source) *Simulator {
	if src == nil {
		seed := uint64(time.Now().UnixNano())
		src = rand.NewPCG(seed, seed>>1)
	}
	return &Simulator{rnd: rand.New(src)}
}

// Review returns Violation about half of the time and NoIssues otherwise.
func (s *Simulator) Review() string {
	s.mu.Lock()
	v := s.rnd.Float64()
	s.mu.Unlock()

	if v < 0.5 {
		return Violation
	}
	return NoIssues
}
