// Package catalog holds the fixed exercise set and random selection.
package catalog

import (
	"math/rand"
	"time"

	"github.com/verte-zerg/diktor/internal/model"
)

var exercises = []model.Exercise{
	{ID: "b1", Difficulty: model.Beginner, Category: model.TongueTwister, Text: "От топота копыт пыль по полю летит."},
	{ID: "b2", Difficulty: model.Beginner, Category: model.TongueTwister, Text: "Шла Саша по шоссе и сосала сушку."},
	{ID: "b3", Difficulty: model.Beginner, Category: model.Articulation, Text: "Ма-мэ-ми-мо-му. Да-дэ-ди-до-ду."},
	{ID: "b4", Difficulty: model.Beginner, Category: model.Text, Text: "Чёткая речь — залог успеха. Говорите медленно, но уверенно."},

	{ID: "i1", Difficulty: model.Intermediate, Category: model.TongueTwister, Text: "Карл у Клары украл кораллы, а Клара у Карла украла кларнет."},
	{ID: "i2", Difficulty: model.Intermediate, Category: model.TongueTwister, Text: "Корабли лавировали, лавировали, да не вылавировали."},
	{ID: "i3", Difficulty: model.Intermediate, Category: model.Articulation, Text: "Птка-птко-птку-пткэ-пткы. Бдга-бдго-бдгу-бдгэ-бдгы."},
	{ID: "i4", Difficulty: model.Intermediate, Category: model.Text, Text: "На дворе трава, на траве дрова, не руби дрова на траве двора."},

	{ID: "a1", Difficulty: model.Advanced, Category: model.TongueTwister, Text: "В недрах тундры выдры в гетрах тырят в вёдра ядра кедров."},
	{ID: "a2", Difficulty: model.Advanced, Category: model.TongueTwister, Text: "Сшит колпак, да не по-колпаковски, вылит колокол, да не по-колоколовски."},
	{ID: "a3", Difficulty: model.Advanced, Category: model.TongueTwister, Text: "Четверг, четвертого числа, в четыре с четвертью часа, лигурийский регулировщик регулировал в Лигурии."},
	{ID: "a4", Difficulty: model.Advanced, Category: model.Articulation, Text: "Рлра-рлро-рлру-рлрэ-рлры. Лилре-лилро-лилру-лилрэ."},
}

// All returns a copy of the whole catalog in display order.
func All() []model.Exercise {
	return append([]model.Exercise(nil), exercises...)
}

// ByDifficulty returns the exercises tagged with d.
func ByDifficulty(d model.Difficulty) []model.Exercise {
	return filter(exercises, d)
}

// Lookup finds an exercise by id.
func Lookup(id string) (model.Exercise, bool) {
	for _, ex := range exercises {
		if ex.ID == id {
			return ex, true
		}
	}
	return model.Exercise{}, false
}

// Pick filters list by difficulty and selects one entry uniformly using intn.
// Every reachable difficulty must have at least one exercise.
func Pick(list []model.Exercise, d model.Difficulty, intn func(int) int) model.Exercise {
	subset := filter(list, d)
	if len(subset) == 0 {
		panic("catalog: no exercises for difficulty " + string(d))
	}
	return subset[intn(len(subset))]
}

func filter(list []model.Exercise, d model.Difficulty) []model.Exercise {
	out := make([]model.Exercise, 0, len(list))
	for _, ex := range list {
		if ex.Difficulty == d {
			out = append(out, ex)
		}
	}
	return out
}

// Picker selects random exercises from the catalog.
type Picker struct {
	rnd       *rand.Rand
	exercises []model.Exercise
}

// NewPicker returns a Picker seeded with the current time.
func NewPicker() *Picker {
	return NewPickerWithSource(rand.NewSource(time.Now().UnixNano()))
}

// NewPickerWithSource returns a Picker driven by src.
func NewPickerWithSource(src rand.Source) *Picker {
	return &Picker{rnd: rand.New(src), exercises: exercises}
}

// PickRandom returns a uniformly chosen exercise of difficulty d.
func (p *Picker) PickRandom(d model.Difficulty) model.Exercise {
	return Pick(p.exercises, d, p.rnd.Intn)
}
