package pricing

import (
	"fmt"
	"strings"

	contractx "github.com/hotelpassarim/concierge/agent/contract"
)

func roomLabel(room contractx.RoomType) string {
	switch room {
	case contractx.RoomTerreo:
		return "quarto térreo"
	case contractx.RoomSuperior:
		return "quarto superior"
	default:
		return string(room)
	}
}

func mealLabel(meal contractx.MealPlan) string {
	switch meal {
	case contractx.MealBreakfast:
		return "café da manhã"
	case contractx.MealHalfBoard:
		return "meia pensão"
	case contractx.MealFullBoard:
		return "pensão completa"
	default:
		return string(meal)
	}
}

// FormatBRL renders integer centavos in Brazilian currency style,
// e.g. 270930 -> "R$ 2.709,30".
func FormatBRL(cents int64) string {
	neg := cents < 0
	if neg {
		cents = -cents
	}
	reais := cents / 100
	rest := cents % 100

	digits := fmt.Sprintf("%d", reais)
	var b strings.Builder
	for i, d := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(d)
	}
	out := fmt.Sprintf("R$ %s,%02d", b.String(), rest)
	if neg {
		return "-" + out
	}
	return out
}

// FormatQuotes renders a set of quotes as one guest-facing WhatsApp message
// in Portuguese, grouped by meal plan with one line per room type.
func FormatQuotes(quotes []ReservationQuote) string {
	if len(quotes) == 0 {
		return ""
	}

	first := quotes[0]
	var b strings.Builder
	fmt.Fprintf(&b, "*Valores para %s a %s* (%d %s, %d %s",
		first.CheckIn.Format("02/01/2006"),
		first.CheckOut.Format("02/01/2006"),
		first.Nights, plural(first.Nights, "noite", "noites"),
		first.Adults, plural(first.Adults, "adulto", "adultos"))
	if n := len(first.ChildAges); n > 0 {
		fmt.Fprintf(&b, ", %d %s", n, plural(n, "criança", "crianças"))
	}
	b.WriteString(")\n")

	// group by meal plan preserving quote order
	var order []contractx.MealPlan
	byMeal := map[contractx.MealPlan][]ReservationQuote{}
	for _, q := range quotes {
		if _, ok := byMeal[q.MealPlan]; !ok {
			order = append(order, q.MealPlan)
		}
		byMeal[q.MealPlan] = append(byMeal[q.MealPlan], q)
	}

	for _, meal := range order {
		fmt.Fprintf(&b, "\n*%s*\n", capitalize(mealLabel(meal)))
		for _, q := range byMeal[meal] {
			fmt.Fprintf(&b, "- %s: %s\n", capitalize(roomLabel(q.RoomType)), FormatBRL(q.TotalCents))
		}
	}

	if hasDiscount(quotes) {
		b.WriteString("\nValores já com desconto de reserva antecipada aplicado.\n")
	}
	b.WriteString("\nPosso confirmar a reserva para você?")
	return b.String()
}

func hasDiscount(quotes []ReservationQuote) bool {
	for _, q := range quotes {
		for _, l := range q.Lines {
			if l.TotalCents < 0 {
				return true
			}
		}
	}
	return false
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	if r[0] >= 'a' && r[0] <= 'z' {
		r[0] -= 'a' - 'A'
	}
	return string(r)
}
