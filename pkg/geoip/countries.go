package geoip

// countryNames maps ISO 3166 alpha-2 codes to English names.
var countryNames = map[string]string{
	"AE": "United Arab Emirates", "AR": "Argentina", "AT": "Austria", "AU": "Australia",
	"BE": "Belgium", "BR": "Brazil", "CA": "Canada", "CH": "Switzerland",
	"CL": "Chile", "CN": "China", "CO": "Colombia", "CZ": "Czech Republic",
	"DE": "Germany", "DK": "Denmark", "EG": "Egypt", "ES": "Spain",
	"FI": "Finland", "FR": "France", "GB": "United Kingdom", "GR": "Greece",
	"HK": "Hong Kong", "HU": "Hungary", "ID": "Indonesia", "IE": "Ireland",
	"IL": "Israel", "IN": "India", "IT": "Italy", "JP": "Japan",
	"KE": "Kenya", "KR": "South Korea", "MX": "Mexico", "MY": "Malaysia",
	"NG": "Nigeria", "NL": "Netherlands", "NO": "Norway", "NZ": "New Zealand",
	"PH": "Philippines", "PL": "Poland", "PT": "Portugal", "RO": "Romania",
	"RU": "Russia", "SA": "Saudi Arabia", "SE": "Sweden", "SG": "Singapore",
	"TH": "Thailand", "TR": "Turkey", "TW": "Taiwan", "UA": "Ukraine",
	"US": "United States", "VN": "Vietnam", "ZA": "South Africa",
}

// countryName returns the English name for code, or code itself when unknown.
func countryName(code string) string {
	if name, ok := countryNames[code]; ok {
		return name
	}
	return code
}
