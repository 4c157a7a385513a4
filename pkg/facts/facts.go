package facts

import (
	"math/rand"

	"github.com/PuerkitoBio/goquery"
)

var Facts = []string{
	"A day on Venus is longer than a year on Venus. It rotates very slowly.",
	"The footsteps left on the Moon by Apollo astronauts will likely remain there for at least 100 million years.",
	"There is a 'super-Earth' planet, 55 Cancri e, that is believed to be made largely of diamond.",
	"The largest volcano in our solar system is Olympus Mons on Mars; it's three times taller than Mount Everest.",
	"You can't burp in space because the lack of gravity prevents the gas in your stomach from separating from the liquid.",
	"Neutron stars are so dense that a spoonful of their material would weigh about the same as Mount Everest.",
}

// Pick returns one fact chosen uniformly at random.
func Pick(r *rand.Rand) string {
	return Facts[r.Intn(len(Facts))]
}

// Display overwrites the slot text with a random fact.
// если слота на странице нет, то просто ничего не делаем
func Display(slot *goquery.Selection, r *rand.Rand) {

	if slot == nil || slot.Length() == 0 {
		return
	}

	slot.SetText(Pick(r))
}
