package agents

// DefaultProfiles returns the scenario's starting cast. Israeli
// security and cabinet agents report to the PM; foreign actors and
// media do not.
func DefaultProfiles() []Profile {
	return []Profile{
		{ID: "Head-Of-Shabak", EntityName: "Israel", EntityType: "Entity", Enabled: true,
			Description:           "Directs internal security; focused on locating hostages and collaborator networks inside Gaza",
			EventFrequencyMinutes: 45, IsReportingGovernment: true, SearcherCapability: 0.7,
			Capabilities: []string{"intelligence", "internal"}},
		{ID: "Head-Of-Mossad", EntityName: "Israel", EntityType: "Entity", Enabled: true,
			Description:           "Runs foreign intelligence; handles back channels to Doha and Cairo",
			EventFrequencyMinutes: 60, IsReportingGovernment: true, SearcherCapability: 0.7,
			Capabilities: []string{"intelligence", "diplomatic"}},
		{ID: "IDF-Commander", EntityName: "Israel", EntityType: "Entity", Enabled: true,
			Description:           "Commands the general staff; plans and executes military operations",
			EventFrequencyMinutes: 30, IsReportingGovernment: true, SearcherCapability: 0.5,
			Capabilities: []string{"military"}},
		{ID: "Defense-Minister", EntityName: "Israel", EntityType: "Entity", Enabled: true,
			Description:           "Sets defense policy and authorizes force posture changes",
			EventFrequencyMinutes: 60, IsReportingGovernment: true,
			Capabilities: []string{"military", "internal"}},
		{ID: "Treasury-Minister", EntityName: "Israel", EntityType: "Entity", Enabled: true,
			Description:           "Manages the war economy, emergency budgets and compensation",
			EventFrequencyMinutes: 120, IsReportingGovernment: true,
			Capabilities: []string{"economic"}},
		{ID: "Foreign-Minister", EntityName: "Israel", EntityType: "Entity", Enabled: true,
			Description:           "Leads diplomatic outreach and manages international standing",
			EventFrequencyMinutes: 90, IsReportingGovernment: true,
			Capabilities: []string{"diplomatic"}},
		{ID: "Bank-of-Israel", EntityName: "Israel", EntityType: "Entity", Enabled: true,
			Description:           "Defends the shekel and financial stability",
			EventFrequencyMinutes: 180, Capabilities: []string{"economic"}},
		{ID: "Media-Channel-12", EntityName: "Israel", EntityType: "Entity", Enabled: true,
			Description:           "Mainstream broadcaster shaping civilian morale",
			EventFrequencyMinutes: 30, Capabilities: []string{"internal"}},
		{ID: "Media-Channel-14", EntityName: "Israel", EntityType: "Entity", Enabled: true,
			Description:           "Right-leaning broadcaster pressing for escalation",
			EventFrequencyMinutes: 30, Capabilities: []string{"internal"}},
		{ID: "USA-President", EntityName: "USA", EntityType: "Entity", Enabled: true,
			Description:           "Backs Israel publicly while pressing for restraint and hostage deals",
			EventFrequencyMinutes: 120, Capabilities: []string{"diplomatic", "military"}},
		{ID: "USA-Secretary-of-State", EntityName: "USA", EntityType: "Entity", Enabled: true,
			Description:           "Shuttles between capitals to contain regional escalation",
			EventFrequencyMinutes: 90, Capabilities: []string{"diplomatic"}},
		{ID: "UK-Prime-Minister", EntityName: "UK", EntityType: "Entity", Enabled: true,
			Description:           "Aligns with Washington; manages domestic pressure",
			EventFrequencyMinutes: 180, Capabilities: []string{"diplomatic"}},
		{ID: "Russia-President", EntityName: "Russia", EntityType: "Entity", Enabled: true,
			Description:           "Exploits the crisis to weaken Western positions",
			EventFrequencyMinutes: 240, Capabilities: []string{"diplomatic"}},
		{ID: "Iran-Ayatollah", EntityName: "Iran", EntityType: "Entity", Enabled: true,
			Description:           "Supreme authority; signals red lines through proxies",
			EventFrequencyMinutes: 240, Capabilities: []string{"diplomatic", "military"}},
		{ID: "Iran-President", EntityName: "Iran", EntityType: "Entity", Enabled: true,
			Description:           "Public face of Iranian support for the resistance axis",
			EventFrequencyMinutes: 180, Capabilities: []string{"diplomatic"}},
		{ID: "Egypt-President", EntityName: "Egypt", EntityType: "Entity", Enabled: true,
			Description:           "Controls Rafah; mediates while guarding the Sinai border",
			EventFrequencyMinutes: 120, Capabilities: []string{"diplomatic"}},
		{ID: "Hamas-Leader", EntityName: "Hamas", EntityType: "Entity", Enabled: true,
			Description:           "Political leadership abroad; trades hostages for leverage",
			EventFrequencyMinutes: 60, Capabilities: []string{"military", "diplomatic"}},
		{ID: "Hamas-Gaza", EntityName: "Hamas", EntityType: "Entity", Enabled: true,
			Description:           "Military command inside the strip; directs the fighting",
			EventFrequencyMinutes: 45, SearcherCapability: 0.5,
			Capabilities: []string{"military"}},
		{ID: "PLO-Prime-Minister", EntityName: "PLO", EntityType: "Entity", Enabled: true,
			Description:           "West Bank government; fears losing control of the street",
			EventFrequencyMinutes: 240, Capabilities: []string{"diplomatic", "internal"}},
		{ID: "PLO-President", EntityName: "PLO", EntityType: "Entity", Enabled: true,
			Description:           "Aging leadership balancing between Israel and Hamas",
			EventFrequencyMinutes: 240, Capabilities: []string{"diplomatic"}},
		{ID: "North-Korea-Supreme-Leader", EntityName: "North-Korea", EntityType: "Entity", Enabled: true,
			Description:           "Opportunistic arms supplier and provocateur",
			EventFrequencyMinutes: 360, Capabilities: []string{"diplomatic", "economic"}},
		{ID: "UN-Secretary-General", EntityName: "UN", EntityType: "Entity", Enabled: true,
			Description:           "Calls for humanitarian access and civilian protection",
			EventFrequencyMinutes: 180, Capabilities: []string{"diplomatic"}},
	}
}

// SeedDefaults registers the default cast into an empty registry.
func SeedDefaults(r *Registry) {
	for _, p := range DefaultProfiles() {
		r.Register(p)
	}
}
