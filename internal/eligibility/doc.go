// Package eligibility decides whether a harvested record may be published.
// Rules run in a fixed priority order on every refresh; ignore reasons that
// match a protected substring record a manual operator decision and are never
// overturned automatically.
package eligibility
