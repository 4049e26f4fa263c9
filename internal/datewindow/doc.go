// Package datewindow converts the free-form delivery text shown on retailer
// order pages into a model.DeliveryWindow.
//
// Recognized shapes, tried in this order:
//  1. "today" (optionally "today by 10pm")
//  2. a single day: "15 March", "Friday, 15 March", "March 15, 2025",
//     "15/03/2025", "tomorrow", "Sunday", "in 3 days"
//  3. a range of days: "12-15 March", "Mar 12 - Mar 15", "30 Dec - 2 Jan",
//     "within 5 days"
//  4. a day followed by a time range: "today 10am - 2pm",
//     "Friday, 15 March, 10:30am-2pm", "tomorrow between 9am and 5pm"
//
// Text is NFKC-normalized and case-folded first, and leading status words
// such as "Arriving" or "Now expected by" are removed. Dates without a year
// resolve to the reference year and roll over to the next year when they
// would fall more than the grace window before the reference date.
package datewindow
