// Package batch 实现"对每个可用的处理结果创建候选人"的批量编排。
// 顺序执行、条目间节流、单条失败不中断，是刻意的设计：后端创建接口对
// 请求速率敏感，这里用串行加延迟来限流而不是追求吞吐。
package batch

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"cv-intake-go/internal/logger"
	"cv-intake-go/internal/types"
)

// DefaultInterItemDelay 条目间的默认节流间隔
const DefaultInterItemDelay = 200 * time.Millisecond

// Item 批量处理集合中的一个条目。
// 编排器在每次创建尝试完成后原地修改：成功时CandidateCreated翻为true。
// 整个集合只在一次会话内存在，不做任何持久化。
type Item struct {
	Filename         string                `json:"filename"`
	Success          bool                  `json:"success"`
	StructuredData   types.ExtractedRecord `json:"structuredData,omitempty"`
	Error            string                `json:"error,omitempty"`
	CandidateCreated bool                  `json:"candidateCreated"`
}

// Eligible 条目是否可参与创建：抽取成功、有结构化数据、尚未创建过
func (it *Item) Eligible() bool {
	return it.Success && !it.CandidateCreated && len(it.StructuredData) > 0
}

// Outcome 一次批量创建的聚合结果，每次运行重新计算
type Outcome struct {
	SuccessCount int `json:"successCount"`
	FailureCount int `json:"failureCount"`
}

// CreateFunc 对单条抽取数据执行创建的回调（通常包装后端REST调用）
type CreateFunc func(ctx context.Context, data types.ExtractedRecord) error

// Orchestrator 批量创建编排器
type Orchestrator struct {
	delay  time.Duration
	logger zerolog.Logger
}

// Option 编排器配置选项
type Option func(*Orchestrator)

// WithInterItemDelay 覆盖条目间的节流间隔
func WithInterItemDelay(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d >= 0 {
			o.delay = d
		}
	}
}

// WithLogger 覆盖日志实例
func WithLogger(l zerolog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = l
	}
}

// NewOrchestrator 创建批量创建编排器
func NewOrchestrator(opts ...Option) *Orchestrator {
	o := &Orchestrator{
		delay:  DefaultInterItemDelay,
		logger: logger.Logger,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// CreateOne 对单个条目执行一次创建尝试。
// 成功时原地置CandidateCreated并清空Error；失败时把错误写回条目并返回。
// 不可用的条目直接返回nil（与批量路径的跳过语义一致）。
func (o *Orchestrator) CreateOne(ctx context.Context, item *Item, create CreateFunc) error {
	if !item.Eligible() {
		return nil
	}
	if err := create(ctx, item.StructuredData); err != nil {
		item.Error = err.Error()
		o.logger.Warn().
			Str("filename", item.Filename).
			Err(err).
			Msg("候选人创建失败")
		return err
	}
	item.CandidateCreated = true
	item.Error = ""
	return nil
}

// CreateAll 按原始顺序遍历条目，对每个可用条目调用create。
// 语义：
//   - 跳过抽取失败、已创建、无结构化数据的条目
//   - 单条失败只计数并记录，绝不中断批次（部分失败容忍）
//   - 相邻两次尝试之间等待节流间隔，最后一条之后不等待
//   - ctx取消时在条目间协作式停止，已完成的计数原样返回，
//     单条的成败语义不受影响
//
// 编排器自身永不报错，只返回计数。重复调用是安全的：已创建的条目
// 会被跳过，第二次运行自然得到0/0。
func (o *Orchestrator) CreateAll(ctx context.Context, items []*Item, create CreateFunc) Outcome {
	var outcome Outcome
	attempted := false

	for _, item := range items {
		if !item.Eligible() {
			continue
		}

		// 条目间节流；首条之前不等待
		if attempted {
			if !o.pause(ctx) {
				o.logger.Info().
					Int("success", outcome.SuccessCount).
					Int("failure", outcome.FailureCount).
					Msg("批量创建被取消，返回已累计的结果")
				return outcome
			}
		}
		attempted = true

		if err := o.CreateOne(ctx, item, create); err != nil {
			outcome.FailureCount++
			continue
		}
		outcome.SuccessCount++
	}

	o.logger.Info().
		Int("success", outcome.SuccessCount).
		Int("failure", outcome.FailureCount).
		Msg("批量创建完成")
	return outcome
}

// pause 等待节流间隔，返回false表示上下文已取消
func (o *Orchestrator) pause(ctx context.Context) bool {
	if o.delay <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(o.delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
