// Copyright 2024-2026 Aiku AI

package connector

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/mock/gomock"

	"github.com/aiku/james-sync/pkg/connector/mocks"
	"github.com/aiku/james-sync/pkg/james"
)

func TestAliasService_ApplyWithMockAPI(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mod    Modifications
		expect func(m *mocks.MockAliasAPIMockRecorder)
		want   bool
	}{
		{
			name: "create checks the account then adds",
			mod:  create(bob, Datasets{AttrSources: {"b1@james.org"}}),
			expect: func(m *mocks.MockAliasAPIMockRecorder) {
				gomock.InOrder(
					m.UserExists(gomock.Any(), bob).Return(true, nil),
					m.AddAlias(gomock.Any(), bob, james.Alias{Source: "b1@james.org"}).Return(nil),
				)
			},
			want: true,
		},
		{
			name: "create fails when the account check fails",
			mod:  create(bob, Datasets{AttrSources: {"b1@james.org"}}),
			expect: func(m *mocks.MockAliasAPIMockRecorder) {
				m.UserExists(gomock.Any(), bob).Return(false, &james.ClientError{StatusCode: 500})
			},
			want: false,
		},
		{
			name: "update removes before adding",
			mod:  update(bob, Datasets{AttrSources: {"new@james.org"}}),
			expect: func(m *mocks.MockAliasAPIMockRecorder) {
				gomock.InOrder(
					m.Aliases(gomock.Any(), bob).Return([]james.Alias{{Source: "old@james.org"}}, nil),
					m.RemoveAlias(gomock.Any(), bob, james.Alias{Source: "old@james.org"}).Return(nil),
					m.AddAlias(gomock.Any(), bob, james.Alias{Source: "new@james.org"}).Return(nil),
				)
			},
			want: true,
		},
		{
			name: "update reports a failed write but still adds",
			mod:  update(bob, Datasets{AttrSources: {"new@james.org"}}),
			expect: func(m *mocks.MockAliasAPIMockRecorder) {
				m.Aliases(gomock.Any(), bob).Return([]james.Alias{{Source: "old@james.org"}}, nil)
				m.RemoveAlias(gomock.Any(), bob, gomock.Any()).Return(errors.New("boom"))
				m.AddAlias(gomock.Any(), bob, james.Alias{Source: "new@james.org"}).Return(nil)
			},
			want: false,
		},
		{
			name: "delete of a user without aliases",
			mod:  remove(bob),
			expect: func(m *mocks.MockAliasAPIMockRecorder) {
				m.Aliases(gomock.Any(), bob).Return(nil, james.ErrNotFound)
			},
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ctrl := gomock.NewController(t)
			api := mocks.NewMockAliasAPI(ctrl)
			tt.expect(api.EXPECT())

			svc := NewAliasService(api, testOptions())
			if got := svc.Apply(context.Background(), tt.mod); got != tt.want {
				t.Errorf("Apply: got %v, want %v", got, tt.want)
			}
		})
	}
}
