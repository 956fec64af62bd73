package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsBettingOpen(t *testing.T) {
	assert.True(t, IsBettingOpen(StatusOpen))
	assert.True(t, IsBettingOpen(StatusLastCall))

	assert.False(t, IsBettingOpen(StatusOngoing))
	assert.False(t, IsBettingOpen(StatusClosed))
	assert.False(t, IsBettingOpen(StatusFinished))
	assert.False(t, IsBettingOpen(StatusCancelled))
	assert.False(t, IsBettingOpen(""))
}

func TestOppositeSelection(t *testing.T) {
	assert.Equal(t, SelectionWala, OppositeSelection(SelectionMeron))
	assert.Equal(t, SelectionMeron, OppositeSelection(SelectionWala))
	assert.Equal(t, "", OppositeSelection(SelectionDraw))
	assert.Equal(t, "", OppositeSelection("unknown"))
}

func TestValidSelection(t *testing.T) {
	assert.True(t, ValidSelection(SelectionMeron))
	assert.True(t, ValidSelection(SelectionWala))
	assert.True(t, ValidSelection(SelectionDraw))
	assert.False(t, ValidSelection("MERON"))
	assert.False(t, ValidSelection(""))
}

func TestHumanVolume(t *testing.T) {
	m := &Match{
		MeronTotal:       10000,
		MeronInjected:    6000,
		MeronAutoCounter: 1500,
		WalaTotal:        8000,
		WalaInjected:     8000,
		DrawTotal:        300,
	}

	assert.Equal(t, 2500.0, m.HumanVolume(SelectionMeron))
	assert.Equal(t, 0.0, m.HumanVolume(SelectionWala))
	assert.Equal(t, 300.0, m.HumanVolume(SelectionDraw))
	assert.Equal(t, 0.0, m.HumanVolume("unknown"))
}

func TestNeeded(t *testing.T) {
	m := &Match{
		MeronInjectionTarget: 10000,
		MeronInjected:        4200,
		WalaInjectionTarget:  50,
		WalaInjected:         100,
	}

	assert.Equal(t, 5800.0, m.MeronNeeded())
	assert.Equal(t, 0.0, m.WalaNeeded(), "injected beyond the target never goes negative")

	// 目标为 0 的一侧不需要注水
	m2 := &Match{MeronInjected: 500}
	assert.Equal(t, 0.0, m2.MeronNeeded())
}
