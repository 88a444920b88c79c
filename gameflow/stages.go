package gameflow

// Legal stage ids for tournament play. Game 1 is banned and picked from the
// starter list; later games open up the counterpicks as well.
const (
	StageBattlefield        = "battlefield"
	StageFinalDestination   = "final_destination"
	StagePokemonStadium2    = "pokemon_stadium_2"
	StageSmashville         = "smashville"
	StageTownAndCity        = "town_and_city"
	StageSmallBattlefield   = "small_battlefield"
	StageKalosPokemonLeague = "kalos_pokemon_league"
	StageHollowBastion      = "hollow_bastion"
)

var StarterStages = []string{
	StageBattlefield,
	StageFinalDestination,
	StagePokemonStadium2,
	StageSmashville,
	StageTownAndCity,
}

var CounterpickStages = []string{
	StageSmallBattlefield,
	StageKalosPokemonLeague,
	StageHollowBastion,
}

// LegalStages returns the stage pool for the given game of a match.
func LegalStages(gameNumber int) []string {
	if gameNumber <= 1 {
		return StarterStages
	}
	pool := make([]string, 0, len(StarterStages)+len(CounterpickStages))
	pool = append(pool, StarterStages...)
	pool = append(pool, CounterpickStages...)
	return pool
}

func IsLegalStage(stage string, gameNumber int) bool {
	for _, s := range LegalStages(gameNumber) {
		if s == stage {
			return true
		}
	}
	return false
}
