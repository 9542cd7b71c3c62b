package driver

const (
	SaveLocationNodeQuery = `
		MERGE (n:Location {id: $id})
		SET n.name = $name,
			n.country = $country,
			n.lat = $lat,
			n.lon = $lon,
			n.rank = $rank,
			n.session_id = $session_id
		RETURN n.id AS id
	`

	SaveWorkNodeQuery = `
		MERGE (n:Work {id: $id})
		SET n.title = $title,
			n.abstract = $abstract,
			n.issued = $issued,
			n.confidence = $confidence,
			n.session_id = $session_id
		RETURN n.id AS id
	`

	SaveGrantNodeQuery = `
		MERGE (n:Grant {id: $id})
		SET n.title = $title,
			n.funder = $funder,
			n.start_date = $start_date,
			n.end_date = $end_date,
			n.confidence = $confidence,
			n.session_id = $session_id
		RETURN n.id AS id
	`

	SaveExpertNodeQuery = `
		MERGE (n:Expert {id: $id})
		SET n.name = $name,
			n.session_id = $session_id
		RETURN n.id AS id
	`

	SaveWorkLocationEdgeQuery = `
		MATCH (w:Work {id: $work_id})
		MATCH (l:Location {id: $location_id})
		MERGE (w)-[e:LOCATED_IN]->(l)
		RETURN w.id AS id
	`

	SaveGrantLocationEdgeQuery = `
		MATCH (g:Grant {id: $grant_id})
		MATCH (l:Location {id: $location_id})
		MERGE (g)-[e:LOCATED_IN]->(l)
		RETURN g.id AS id
	`

	SaveAuthorshipEdgeQuery = `
		MATCH (x:Expert {id: $expert_id})
		MATCH (w:Work {id: $work_id})
		MERGE (x)-[e:AUTHORED]->(w)
		RETURN x.id AS id
	`

	SaveAwardEdgeQuery = `
		MATCH (x:Expert {id: $expert_id})
		MATCH (g:Grant {id: $grant_id})
		MERGE (x)-[e:AWARDED]->(g)
		RETURN x.id AS id
	`

	SaveResidencyEdgeQuery = `
		MATCH (x:Expert {id: $expert_id})
		MATCH (l:Location {id: $location_id})
		MERGE (x)-[e:BASED_IN]->(l)
		RETURN x.id AS id
	`

	GetLocationExpertsQuery = `
		MATCH (x:Expert)-[:BASED_IN]->(l:Location {id: $location_id})
		RETURN x.id AS id, x.name AS name
	`

	GetExpertWorksQuery = `
		MATCH (x:Expert {id: $expert_id})-[:AUTHORED]->(w:Work)
		RETURN w.id AS id, w.title AS title
	`
)
