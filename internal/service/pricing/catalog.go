package pricing

import (
	"errors"
	"fmt"

	"github.com/jwalitptl/geo-pricing/internal/model"
	"github.com/jwalitptl/geo-pricing/internal/zone"
)

var ErrPlanNotFound = errors.New("plan not found")

// Catalog holds the configured plans in declaration order.
type Catalog struct {
	plans   []model.Plan
	byName  map[string]int
	matcher *Matcher
}

func NewCatalog(plans []model.Plan, matcher *Matcher) *Catalog {
	if matcher == nil {
		matcher = NewMatcher(nil, nil)
	}
	c := &Catalog{
		plans:   make([]model.Plan, len(plans)),
		byName:  make(map[string]int, len(plans)),
		matcher: matcher,
	}
	copy(c.plans, plans)
	for i, p := range c.plans {
		if _, dup := c.byName[p.Name]; !dup {
			c.byName[p.Name] = i
		}
	}
	return c
}

// Plans returns a copy of the configured plans.
func (c *Catalog) Plans() []model.Plan {
	out := make([]model.Plan, len(c.plans))
	copy(out, c.plans)
	return out
}

func (c *Catalog) Plan(name string) (model.Plan, error) {
	i, ok := c.byName[name]
	if !ok {
		return model.Plan{}, fmt.Errorf("%w: %s", ErrPlanNotFound, name)
	}
	return c.plans[i], nil
}

// PriceFor resolves the price of plan in zone.
func (c *Catalog) PriceFor(plan string, z model.ZoneID) (model.PlanPrice, error) {
	p, err := c.Plan(plan)
	if err != nil {
		return model.PlanPrice{}, err
	}

	entry, fallback := c.matcher.Match(p.Prices, z)
	result := model.PlanPrice{
		Plan:       p.Name,
		RegionCode: z,
		RegionName: zone.NameForZone(z),
		Fallback:   fallback,
	}
	if entry != nil {
		e := *entry
		result.Entry = &e
	}
	return result, nil
}
