package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/Veraticus/spice-rules/internal/model"
)

func TestValidateContext(t *testing.T) {
	tests := []struct {
		ctx     context.Context
		name    string
		wantErr bool
	}{
		{
			name:    "valid context",
			ctx:     context.Background(),
			wantErr: false,
		},
		{
			name:    "nil context",
			ctx:     nil,
			wantErr: true,
		},
		{
			name: "canceled context still valid",
			ctx: func() context.Context {
				ctx, cancel := context.WithCancel(context.Background())
				cancel()
				return ctx
			}(),
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateContext(tt.ctx)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateContext() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateString(t *testing.T) {
	tests := []struct {
		name    string
		str     string
		wantErr bool
	}{
		{name: "valid string", str: "test"},
		{name: "empty string", str: "", wantErr: true},
		{name: "whitespace only", str: " \t\n", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateString(tt.str, "param")
			if (err != nil) != tt.wantErr {
				t.Errorf("validateString() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrEmptyString) {
				t.Errorf("validateString() error = %v, want ErrEmptyString", err)
			}
		})
	}
}

func TestValidateRule(t *testing.T) {
	valid := func() *model.AutoRule {
		return &model.AutoRule{
			ID:         "r1",
			Name:       "Frete",
			Conditions: []model.RuleCondition{{Field: model.FieldDescription, Operator: model.OperatorContains, Value: model.TextValue("frete")}},
			Actions:    model.Actions{model.Skip{}},
			Priority:   50,
		}
	}

	tests := []struct {
		mutate  func(r *model.AutoRule)
		name    string
		wantErr bool
	}{
		{name: "valid rule", mutate: func(*model.AutoRule) {}},
		{name: "missing id", mutate: func(r *model.AutoRule) { r.ID = "" }, wantErr: true},
		{name: "system id", mutate: func(r *model.AutoRule) { r.ID = "system_frete" }, wantErr: true},
		{name: "system flag", mutate: func(r *model.AutoRule) { r.IsSystemRule = true }, wantErr: true},
		{name: "blank name", mutate: func(r *model.AutoRule) { r.Name = " " }, wantErr: true},
		{name: "no conditions", mutate: func(r *model.AutoRule) { r.Conditions = nil }, wantErr: true},
		{name: "no actions", mutate: func(r *model.AutoRule) { r.Actions = nil }, wantErr: true},
		{name: "priority zero", mutate: func(r *model.AutoRule) { r.Priority = 0 }, wantErr: true},
		{name: "priority too high", mutate: func(r *model.AutoRule) { r.Priority = 101 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := valid()
			tt.mutate(r)
			err := validateRule(r)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateRule() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}

	if err := validateRule(nil); !errors.Is(err, ErrNilParameter) {
		t.Errorf("validateRule(nil) error = %v, want ErrNilParameter", err)
	}
}

func TestValidateAuditEntry(t *testing.T) {
	if err := validateAuditEntry(&model.AuditEntry{RuleID: "r1", Action: model.AuditEnabled}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := validateAuditEntry(&model.AuditEntry{RuleID: "r1", Action: "renamed"}); !errors.Is(err, ErrInvalidRow) {
		t.Errorf("unknown action error = %v, want ErrInvalidRow", err)
	}
	if err := validateAuditEntry(&model.AuditEntry{Action: model.AuditCreated}); !errors.Is(err, ErrEmptyString) {
		t.Errorf("missing rule id error = %v, want ErrEmptyString", err)
	}
}
