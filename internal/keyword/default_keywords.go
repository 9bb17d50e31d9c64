package keyword

// DefaultMerchants returns the built-in merchant-name gazetteer, keyed by
// category. These entries double as merchant discovery hints for the parser.
func DefaultMerchants() map[string][]string {
	return map[string][]string{
		"Coffee": {
			"starbucks", "dunkin", "peets", "blue bottle", "philz",
		},
		"Groceries": {
			"whole foods", "trader joe", "kroger", "safeway", "aldi",
			"costco", "walmart", "wegmans", "publix", "heb",
		},
		"Dining": {
			"mcdonald", "chipotle", "taco bell", "subway", "wendys",
			"panera", "five guys", "olive garden", "doordash", "grubhub",
			"uber eats", "domino",
		},
		"Transportation": {
			"uber", "lyft", "shell", "chevron", "exxon", "valero",
			"amtrak", "greyhound",
		},
		"Entertainment": {
			"netflix", "spotify", "hulu", "disney plus", "hbo max",
			"steam", "playstation", "xbox", "amc",
		},
		"Shopping": {
			"amazon", "target", "best buy", "ebay", "etsy", "ikea",
			"macys", "nordstrom",
		},
		"Utilities": {
			"comcast", "xfinity", "verizon", "t-mobile", "at&t",
			"spectrum", "pg&e", "con edison",
		},
		"Health": {
			"cvs", "walgreens", "rite aid", "kaiser", "planet fitness",
			"24 hour fitness",
		},
		"Home": {
			"home depot", "lowes", "ace hardware", "menards",
		},
		"Travel": {
			"delta", "united airlines", "southwest", "american airlines",
			"airbnb", "marriott", "hilton", "expedia",
		},
	}
}

// DefaultKeywords returns the built-in generic term gazetteer, keyed by
// category. These classify but never name a merchant.
func DefaultKeywords() map[string][]string {
	return map[string][]string{
		"Coffee": {
			"coffee", "latte", "espresso", "cappuccino", "cafe",
		},
		"Groceries": {
			"grocery", "groceries", "supermarket", "produce",
		},
		"Dining": {
			"restaurant", "lunch", "dinner", "breakfast", "brunch",
			"pizza", "burger", "sushi", "takeout", "tacos",
		},
		"Transportation": {
			"gas", "fuel", "parking", "toll", "transit", "bus fare",
			"train ticket", "car wash", "oil change",
		},
		"Entertainment": {
			"movie", "cinema", "concert", "theater", "streaming",
			"video game",
		},
		"Shopping": {
			"clothes", "clothing", "shoes", "electronics", "furniture",
		},
		"Utilities": {
			"electric bill", "electricity", "water bill", "internet",
			"phone bill", "utility",
		},
		"Health": {
			"pharmacy", "doctor", "dentist", "gym", "fitness",
			"prescription", "copay",
		},
		"Home": {
			"repair", "plumber", "electrician", "cleaning", "lawn",
			"hardware",
		},
		"Travel": {
			"flight", "hotel", "airline", "rental car", "baggage",
		},
	}
}
