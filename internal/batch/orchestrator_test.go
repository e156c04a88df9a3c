package batch

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cv-intake-go/internal/types"
)

func sampleData(name string) types.ExtractedRecord {
	return types.ExtractedRecord{
		"personalInfo": map[string]interface{}{
			"fullName": name,
			"email":    name + "@example.com",
		},
	}
}

func TestCreateAllScenario(t *testing.T) {
	// 5个条目：[1]和[3]抽取失败，[2]已创建过，[4]的创建回调会失败。
	// 预期只尝试[0]和[4]，[0]成功，[4]失败，[2]的已创建标记保持不变。
	items := []*Item{
		{Filename: "a.pdf", Success: true, StructuredData: sampleData("a")},
		{Filename: "b.pdf", Success: false, Error: "parse failed"},
		{Filename: "c.pdf", Success: true, StructuredData: sampleData("c"), CandidateCreated: true},
		{Filename: "d.pdf", Success: false, Error: "parse failed"},
		{Filename: "e.pdf", Success: true, StructuredData: sampleData("e")},
	}

	var attempted []string
	create := func(ctx context.Context, data types.ExtractedRecord) error {
		pi := data["personalInfo"].(map[string]interface{})
		name := pi["fullName"].(string)
		attempted = append(attempted, name)
		if name == "e" {
			return errors.New("backend rejected")
		}
		return nil
	}

	o := NewOrchestrator(WithInterItemDelay(0))
	outcome := o.CreateAll(context.Background(), items, create)

	assert.Equal(t, []string{"a", "e"}, attempted)
	assert.Equal(t, 1, outcome.SuccessCount)
	assert.Equal(t, 1, outcome.FailureCount)

	assert.True(t, items[0].CandidateCreated)
	assert.True(t, items[2].CandidateCreated)
	assert.False(t, items[4].CandidateCreated)
	assert.Equal(t, "backend rejected", items[4].Error)
}

func TestCreateAllRerunIdempotent(t *testing.T) {
	items := []*Item{
		{Filename: "a.pdf", Success: true, StructuredData: sampleData("a")},
		{Filename: "b.pdf", Success: true, StructuredData: sampleData("b")},
	}
	calls := 0
	create := func(ctx context.Context, data types.ExtractedRecord) error {
		calls++
		return nil
	}

	o := NewOrchestrator(WithInterItemDelay(0))
	first := o.CreateAll(context.Background(), items, create)
	assert.Equal(t, 2, first.SuccessCount)
	assert.Equal(t, 0, first.FailureCount)

	// 第二次运行没有可用条目，不再触发任何创建
	second := o.CreateAll(context.Background(), items, create)
	assert.Equal(t, 0, second.SuccessCount)
	assert.Equal(t, 0, second.FailureCount)
	assert.Equal(t, 2, calls)
}

func TestCreateAllFailureNeverAborts(t *testing.T) {
	var items []*Item
	for i := 0; i < 4; i++ {
		items = append(items, &Item{
			Filename:       fmt.Sprintf("f%d.pdf", i),
			Success:        true,
			StructuredData: sampleData(fmt.Sprintf("f%d", i)),
		})
	}
	create := func(ctx context.Context, data types.ExtractedRecord) error {
		return errors.New("always down")
	}

	o := NewOrchestrator(WithInterItemDelay(0))
	outcome := o.CreateAll(context.Background(), items, create)
	assert.Equal(t, 0, outcome.SuccessCount)
	assert.Equal(t, 4, outcome.FailureCount)
	for _, item := range items {
		assert.Equal(t, "always down", item.Error)
	}
}

func TestCreateAllPacing(t *testing.T) {
	items := []*Item{
		{Filename: "a.pdf", Success: true, StructuredData: sampleData("a")},
		{Filename: "b.pdf", Success: true, StructuredData: sampleData("b")},
		{Filename: "c.pdf", Success: true, StructuredData: sampleData("c")},
	}
	create := func(ctx context.Context, data types.ExtractedRecord) error {
		return nil
	}

	delay := 30 * time.Millisecond
	o := NewOrchestrator(WithInterItemDelay(delay))

	start := time.Now()
	outcome := o.CreateAll(context.Background(), items, create)
	elapsed := time.Since(start)

	assert.Equal(t, 3, outcome.SuccessCount)
	// 3条之间有2个间隔，最后一条之后不等待
	assert.GreaterOrEqual(t, elapsed, 2*delay)
	assert.Less(t, elapsed, 4*delay)
}

func TestCreateAllContextCancellation(t *testing.T) {
	var items []*Item
	for i := 0; i < 10; i++ {
		items = append(items, &Item{
			Filename:       fmt.Sprintf("f%d.pdf", i),
			Success:        true,
			StructuredData: sampleData(fmt.Sprintf("f%d", i)),
		})
	}

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	create := func(ctx context.Context, data types.ExtractedRecord) error {
		calls++
		if calls == 2 {
			cancel() // 第2条完成后取消
		}
		return nil
	}

	o := NewOrchestrator(WithInterItemDelay(10 * time.Millisecond))
	outcome := o.CreateAll(ctx, items, create)

	// 取消在条目间生效：已完成的计数保留，后续不再尝试
	assert.Equal(t, 2, calls)
	assert.Equal(t, 2, outcome.SuccessCount)
	assert.Equal(t, 0, outcome.FailureCount)
}

func TestCreateOne(t *testing.T) {
	item := &Item{Filename: "a.pdf", Success: true, StructuredData: sampleData("a")}

	err := NewOrchestrator().CreateOne(context.Background(), item, func(ctx context.Context, data types.ExtractedRecord) error {
		return nil
	})
	require.NoError(t, err)
	assert.True(t, item.CandidateCreated)

	// 已创建的条目不再尝试
	err = NewOrchestrator().CreateOne(context.Background(), item, func(ctx context.Context, data types.ExtractedRecord) error {
		t.Fatal("不应再次调用create")
		return nil
	})
	require.NoError(t, err)
}

func TestCreateOneIneligible(t *testing.T) {
	tests := []struct {
		name string
		item *Item
	}{
		{"抽取失败", &Item{Filename: "x.pdf", Success: false}},
		{"无结构化数据", &Item{Filename: "x.pdf", Success: true}},
		{"已创建", &Item{Filename: "x.pdf", Success: true, StructuredData: sampleData("x"), CandidateCreated: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewOrchestrator().CreateOne(context.Background(), tt.item, func(ctx context.Context, data types.ExtractedRecord) error {
				t.Fatal("不可用条目不应触发create")
				return nil
			})
			assert.NoError(t, err)
		})
	}
}
